package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"github.com/tunebox/tunebox/config"
	"github.com/tunebox/tunebox/db"
	"github.com/tunebox/tunebox/db/mongostore"
	"github.com/tunebox/tunebox/media"
	"github.com/tunebox/tunebox/service/auth"
	"github.com/tunebox/tunebox/service/catalog"
	"github.com/tunebox/tunebox/service/playlist"
	"github.com/tunebox/tunebox/session"
)

// store is everything the services need from a backend
type store interface {
	auth.Store
	catalog.Store
	playlist.Store
	Close() error
}

type application struct {
	logger          *slog.Logger
	mediaLogger     *log.Logger
	store           store
	tokens          *session.TokenManager
	authService     *auth.Service
	catalogService  *catalog.Service
	playlistService *playlist.Service
	media           media.Source
	limiters        *clientLimiters
	corsOrigins     []string
}

func newApplication(logger *slog.Logger, st store, tokens *session.TokenManager, src media.Source) *application {
	return &application{
		logger:          logger,
		mediaLogger:     log.New(os.Stdout, "media: ", log.LstdFlags|log.Lmsgprefix),
		store:           st,
		tokens:          tokens,
		authService:     auth.NewAuthService(st, tokens),
		catalogService:  catalog.NewCatalogService(st),
		playlistService: playlist.NewPlaylistService(st),
		media:           src,
		limiters:        newClientLimiters(viper.GetInt("auth.rate_per_minute"), viper.GetInt("auth.rate_burst"), 4096),
		corsOrigins:     viper.GetStringSlice("server.cors_origins"),
	}
}

func openStore(ctx context.Context) (store, error) {
	switch driver := viper.GetString("db.driver"); driver {
	case "sqlite", "":
		database, err := db.New(viper.GetString("db.path"))
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.Initialize(); err != nil {
			database.Close()
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		return database, nil
	case "mongo":
		st, err := mongostore.Connect(ctx, viper.GetString("mongo.uri"), viper.GetString("mongo.database"))
		if err != nil {
			return nil, err
		}
		if err := st.Initialize(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("initialize mongo: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown db.driver %q", driver)
	}
}

func openMedia(ctx context.Context, logger *slog.Logger) (media.Source, error) {
	switch backend := viper.GetString("media.backend"); backend {
	case "local", "":
		return media.NewDirSource(viper.GetString("media.root")), nil
	case "minio":
		src, err := media.NewMinioSource(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetString("minio.bucket"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			return nil, err
		}
		// upload a local public root into the bucket before serving from it
		if dir := viper.GetString("minio.publish_dir"); dir != "" {
			n, err := media.Publish(ctx, dir, src)
			if err != nil {
				return nil, fmt.Errorf("publish %s: %w", dir, err)
			}
			logger.Info("published public files", "dir", dir, "count", n)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown media.backend %q", backend)
	}
}

func main() {
	config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := openStore(connectCtx)
	cancel()
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer st.Close()

	src, err := openMedia(ctx, logger)
	if err != nil {
		log.Fatalf("Error opening media source: %v", err)
	}

	tokens := session.NewTokenManager(
		viper.GetString("auth.jwt_secret"),
		time.Duration(viper.GetInt("auth.token_ttl_hours"))*time.Hour,
	)

	app := newApplication(logger, st, tokens, src)

	if viper.GetBool("catalog.seed_on_start") {
		res, err := app.catalogService.SeedSampleData(ctx)
		if err != nil {
			log.Fatalf("Error seeding catalog: %v", err)
		}
		logger.Info(res.Message, "count", res.Count)
	}

	serverAddr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      app.routes(),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info(fmt.Sprintf("Server running at: http://%s", serverAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

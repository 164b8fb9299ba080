package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration with viper
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it. Using default values and environment variables.")
	}

	setDefaults()

	viper.AutomaticEnv()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %v", err)
		}
		log.Println("Config file not found, using default values and environment variables")
	} else {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	if missing := Missing(); len(missing) > 0 {
		log.Fatalf("Required configuration variables not set: %s", strings.Join(missing, ", "))
	}
}

func setDefaults() {
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.cors_origins", []string{"*"})

	// storage
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", "./data/tunebox.db")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "music-mvp")

	// auth
	viper.SetDefault("auth.token_ttl_hours", 24*7)
	viper.SetDefault("auth.rate_per_minute", 20)
	viper.SetDefault("auth.rate_burst", 5)

	// public files (audio, covers)
	viper.SetDefault("media.backend", "local")
	viper.SetDefault("media.root", "./public")
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.bucket", "music")
	viper.SetDefault("minio.use_ssl", false)

	viper.SetDefault("catalog.seed_on_start", false)
}

// Missing returns the required keys that have no value.
func Missing() []string {
	requiredVars := []string{"auth.jwt_secret"}
	if viper.GetString("db.driver") == "mongo" {
		requiredVars = append(requiredVars, "mongo.uri")
	}
	if viper.GetString("media.backend") == "minio" {
		requiredVars = append(requiredVars, "minio.access_key", "minio.secret_key")
	}

	missingVars := []string{}
	for _, v := range requiredVars {
		if !viper.IsSet(v) || viper.GetString(v) == "" {
			missingVars = append(missingVars, v)
		}
	}
	return missingVars
}

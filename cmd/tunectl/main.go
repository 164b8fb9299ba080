package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tunebox/tunebox/client"
	"github.com/tunebox/tunebox/player"
)

const usage = `usage: tunectl [flags] <command> [args]

commands:
  register <username> <password>
  login <username> <password>
  me
  songs
  search <query>
  seed
  playlists
  playlist <id>
  create <name> [description]
  add <playlistId> <songId>
  add-new <name> <songId>
  remove <playlistId> <songId>
  play <playlistId>

flags:
`

func main() {
	var (
		server = flag.String("server", "http://localhost:5000", "Server base URL")
		token  = flag.String("token", os.Getenv("TUNEBOX_TOKEN"), "Bearer token (defaults to $TUNEBOX_TOKEN)")
		public = flag.Bool("public", false, "Make new playlists public")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*server, client.WithToken(*token))
	ctx := context.Background()

	out, err := run(ctx, c, args[0], args[1:], *public)
	if errors.Is(err, errUsage) {
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "\t")
		enc.Encode(out)
	}
}

var errUsage = errors.New("usage")

func need(args []string, n int) error {
	if len(args) < n {
		return errUsage
	}
	return nil
}

func run(ctx context.Context, c *client.Client, cmd string, args []string, public bool) (any, error) {
	switch cmd {
	case "register", "login":
		if err := need(args, 2); err != nil {
			return nil, err
		}
		if cmd == "register" {
			return c.Register(ctx, args[0], args[1])
		}
		return c.Login(ctx, args[0], args[1])
	case "me":
		return c.Me(ctx)
	case "songs":
		return c.Songs(ctx)
	case "search":
		if err := need(args, 1); err != nil {
			return nil, err
		}
		return c.SearchSongs(ctx, strings.Join(args, " "))
	case "seed":
		return c.InitSampleData(ctx)
	case "playlists":
		return c.MyPlaylists(ctx)
	case "playlist":
		if err := need(args, 1); err != nil {
			return nil, err
		}
		return c.Playlist(ctx, args[0])
	case "create":
		if err := need(args, 1); err != nil {
			return nil, err
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		return c.CreatePlaylist(ctx, args[0], description, public)
	case "add":
		if err := need(args, 2); err != nil {
			return nil, err
		}
		return c.AddSong(ctx, args[0], args[1])
	case "add-new":
		if err := need(args, 2); err != nil {
			return nil, err
		}
		return c.CreatePlaylistWithSong(ctx, args[0], args[1])
	case "remove":
		if err := need(args, 2); err != nil {
			return nil, err
		}
		return c.RemoveSong(ctx, args[0], args[1])
	case "play":
		if err := need(args, 1); err != nil {
			return nil, err
		}
		return nil, play(ctx, c, args[0])
	}
	return nil, errUsage
}

// play runs an interactive session over the songs of a playlist
func play(ctx context.Context, c *client.Client, playlistID string) error {
	p, err := c.Playlist(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(p.Songs) == 0 {
		return fmt.Errorf("playlist %q has no songs", p.Name)
	}

	// catalog durations are exact; the byte estimate is only a fallback
	durations := make(map[string]float64, len(p.Songs))
	for _, s := range p.Songs {
		durations[s.AudioURL] = float64(s.Duration)
	}
	durationOf := func(src string, data []byte) float64 {
		if d := durations[src]; d > 0 {
			return d
		}
		return player.EstimateDuration(src, data)
	}

	audio, err := player.NewHTTPAudio(c.BaseURL(), 250*time.Millisecond, player.WithDurationFunc(durationOf))
	if err != nil {
		return err
	}
	coord := player.NewCoordinator(audio)
	defer coord.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go coord.Run(ctx)

	if err := coord.PlaySong(p.Songs[0], p.Songs); err != nil {
		return err
	}

	fmt.Printf("Playing %q (%d songs). Commands: n, p, space, seek <s>, vol <0-1>, s, q\n", p.Name, len(p.Songs))
	printStatus(coord.State())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)

		var err error
		switch {
		case line == " " || (len(fields) > 0 && fields[0] == "space"):
			if coord.State().Playing() {
				coord.Pause()
			} else {
				err = coord.Resume()
			}
		case len(fields) == 0:
			// enter just prints the status
		case fields[0] == "n":
			err = coord.Next()
		case fields[0] == "p":
			err = coord.Previous()
		case fields[0] == "seek" && len(fields) == 2:
			var secs float64
			if secs, err = strconv.ParseFloat(fields[1], 64); err == nil {
				coord.Seek(secs)
			}
		case fields[0] == "vol" && len(fields) == 2:
			var level float64
			if level, err = strconv.ParseFloat(fields[1], 64); err == nil {
				coord.SetVolume(level)
			}
		case fields[0] == "s":
		case fields[0] == "q":
			return nil
		default:
			fmt.Println("unknown command:", line)
			continue
		}

		if err != nil {
			fmt.Println("error:", err)
		}
		printStatus(coord.State())
	}
	return scanner.Err()
}

func printStatus(s player.Snapshot) {
	if s.Current == nil {
		fmt.Println("[idle]")
		return
	}
	fmt.Printf("[%s] %d/%d %s - %s  %s / %s  vol %.0f%%\n",
		s.State, s.Index+1, len(s.Queue), s.Current.Artist, s.Current.Title,
		clock(s.Elapsed), clock(s.Duration), s.Volume*100)
}

func clock(secs float64) string {
	d := time.Duration(secs) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// soria is the artist-data core of a concert-discovery backend. It keeps
// TTL-cached artist detail snapshots fetched from Spotify behind a
// distributed stampede guard, and serves related-artist recommendations
// from a local sqlite database.
//
// see db/schema.sql for info about the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/config"
	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/db"
	"github.com/soriapp/soria/fetcher"
	"github.com/soriapp/soria/kv"
	"github.com/soriapp/soria/limiter"
	"github.com/soriapp/soria/readthrough"
	"github.com/soriapp/soria/recommend"
	"github.com/soriapp/soria/retry"
	"github.com/soriapp/soria/seed"
	"github.com/soriapp/soria/server"
	"github.com/soriapp/soria/setflag"
	"github.com/soriapp/soria/sigctx"
	"github.com/soriapp/soria/spotify"
	"github.com/soriapp/soria/subcmd"
	"github.com/soriapp/soria/workers"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}

var usage = strings.TrimSpace(`
usage: soria $cmd
valid $cmd are 'serve', 'seed', 'warm', 'fetch'
for help: soria $cmd -help
`)

func run() error {
	ctx := sigctx.New()
	cfg := config.Load()

	if len(os.Args) < 2 {
		return fmt.Errorf(usage)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "serve":
		return serve(ctx, cfg, args)
	case "seed":
		return seedCmd(ctx, cfg, args)
	case "warm":
		return warm(ctx, cfg, args)
	case "fetch":
		return fetch(ctx, cfg, args)
	default:
		return fmt.Errorf("unknown cmd: '%s'\n%s", cmd, usage)
	}
}

func newFetcher(cfg *config.Config) *fetcher.Fetcher {
	spo := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	lim := limiter.New(cfg.Spotify.MinInterval)
	handler := retry.New(retry.NewState(), spo)
	return fetcher.New(spo, lim, handler, cfg.Spotify.Country)
}

func serve(ctx context.Context, cfg *config.Config, args []string) error {
	sc := subcmd.New("serve", "run the api server")
	addr := sc.String("addr", cfg.Addr, "listen address")
	if err := sc.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	cache, err := kv.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	guard := readthrough.New[*data.ArtistDetail](cache)
	srv := server.New(database, guard, newFetcher(cfg), recommend.New(database))

	log.Infof("serving on %s", *addr)
	return srv.Run(ctx, *addr)
}

func seedCmd(ctx context.Context, cfg *config.Config, args []string) error {
	sc := subcmd.New("seed", "seed genres from everynoise, artists from a json file")
	artistsFile := sc.String("artists", "", "path to an artist seed file")
	skipGenres := sc.Bool("skip-genres", false, "skip the genre scrape")
	if err := sc.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if !*skipGenres {
		if _, err := seed.Genres(ctx, database); err != nil {
			return fmt.Errorf("genre seed error: %w", err)
		}
	}
	if *artistsFile != "" {
		if _, err := seed.Artists(ctx, database, *artistsFile); err != nil {
			return fmt.Errorf("artist seed error: %w", err)
		}
	}

	return nil
}

func warm(ctx context.Context, cfg *config.Config, args []string) error {
	sc := subcmd.New("warm", "run background cache workers")
	selection := setflag.New("warm", "reporter")
	sc.Var(selection, "workers", "comma-separated workers to run (warm, reporter)")
	if err := sc.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	cache, err := kv.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	selected := selection.List()
	if len(selected) == 0 {
		selected = []string{"warm", "reporter"}
	}

	guard := readthrough.New[*data.ArtistDetail](cache)
	fetch := newFetcher(cfg)

	running := map[string]workers.Func{}
	for _, name := range selected {
		switch name {
		case "warm":
			running[name] = workers.Warm(database, guard, fetch, cfg.Warm.Interval, cfg.Warm.Batch)
		case "reporter":
			running[name] = workers.Reporter(database, cache, cfg.Warm.Interval)
		}
	}

	return workers.Run(ctx, running)
}

func fetch(ctx context.Context, cfg *config.Config, args []string) error {
	sc := subcmd.New("fetch", "fetch one artist's detail snapshot and print it")
	sc.SetArg("spotify-id", "string", "the artist's spotify ID")
	if err := sc.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}
	if sc.NArg() != 1 {
		sc.Usage()
		return fmt.Errorf("fetch takes exactly one artist ID")
	}

	detail, err := newFetcher(cfg).FetchDetail(ctx, sc.Arg(0))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(detail)
}

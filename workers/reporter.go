package workers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/db"
	"github.com/soriapp/soria/kv"
)

// Reporter returns a worker that periodically logs dataset and cache
// sizes and sweeps expired cache rows.
func Reporter(database *db.DB, cache *kv.SQLite, interval time.Duration) Func {
	return func(ctx context.Context) error {
		tick := time.NewTicker(interval)
		defer tick.Stop()

		for {
			artists, err := database.CountArtists(ctx)
			if err != nil {
				return err
			}
			genres, err := database.CountGenres(ctx)
			if err != nil {
				return err
			}
			entries, err := cache.Count(ctx)
			if err != nil {
				return err
			}
			swept, err := cache.Sweep(ctx)
			if err != nil {
				return err
			}

			log.Infof("report:\t%d artists\t%d genres\t%d cached\t%d swept",
				artists, genres, entries, swept)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}
	}
}

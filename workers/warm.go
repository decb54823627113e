package workers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/db"
	"github.com/soriapp/soria/fetcher"
	"github.com/soriapp/soria/readthrough"
)

// Warm returns a worker that periodically refreshes the detail snapshots
// of the most-liked artists through the stampede guard, so interactive
// requests mostly hit a warm cache. A failed artist is skipped, not
// fatal.
func Warm(database *db.DB, guard *readthrough.Guard[*data.ArtistDetail], fetch *fetcher.Fetcher, interval time.Duration, batch int) Func {
	return func(ctx context.Context) error {
		tick := time.NewTicker(interval)
		defer tick.Stop()

		for {
			artists, err := database.TopArtists(ctx, batch)
			if err != nil {
				return err
			}

			warmed := 0
			for _, artist := range artists {
				if err := ctx.Err(); err != nil {
					return err
				}
				key := "artist:detail:" + artist.SpotifyID
				if _, err := guard.GetOrFetch(ctx, key, func(ctx context.Context) (*data.ArtistDetail, error) {
					return fetch.FetchDetail(ctx, artist.SpotifyID)
				}); err != nil {
					log.Warnf("warm: error refreshing '%s': %s", artist.SpotifyID, err)
					continue
				}
				warmed++
			}
			log.Infof("warm: refreshed %d of %d artists", warmed, len(artists))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}
	}
}

package workers

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A Func is one long-running background worker. It returns when ctx is
// canceled or on a fatal error.
type Func func(ctx context.Context) error

// Run starts the named workers and blocks until all have stopped. The
// first fatal error cancels the rest.
func Run(ctx context.Context, workers map[string]Func) error {
	if len(workers) == 0 {
		return fmt.Errorf("no workers selected")
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, f := range workers {
		name, f := name, f
		g.Go(func() error {
			log.Infof("start:\t%s", name)
			err := f(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("error:\t%s\t%s", name, err)
				return err
			}
			log.Infof("done:\t%s", name)
			return nil
		})
	}
	return g.Wait()
}

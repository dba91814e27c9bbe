package enginesim

import (
	"context"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

var retrySleep = time.Second

// Retryable is a value source that can lose its connection and be reopened.
type Retryable interface {
	Open() error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

var errStarting = errors.New("starting")

// retry keeps r running until ctx is done, closing and reopening it after
// every failure.
func retry(ctx context.Context, r Retryable) error {
	err := errStarting
	for {
		select {
		case <-ctx.Done():
			if closeErr := r.Close(); closeErr != nil {
				log.WithError(closeErr).Warnf("%s: unable to close", r.Name())
			}
			return ctx.Err()
		default:
		}
		if err != nil {
			if err != errStarting {
				log.WithError(err).Errorf("%s: reconnecting due to error", r.Name())
				if err = r.Close(); err != nil {
					log.WithError(err).Warnf("%s: unable to close", r.Name())
				}
				select {
				case <-time.After(retrySleep):
				case <-ctx.Done():
					continue
				}
			}
			err = r.Open()
			if err != nil {
				continue
			}
			log.Infof("%s: connected", r.Name())
		}
		err = r.Start(ctx)
	}
}

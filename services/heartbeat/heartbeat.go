package heartbeat

import (
	"context"
	"time"
)

const DefaultInterval = 60 * time.Second

type Service struct {
	Interval time.Duration
	// Beat, if set, is called on every tick after logging.
	Beat func(t time.Time)
}

func (s *Service) serviceLoop(ctx context.Context) error {
	iv := s.Interval
	if iv <= 0 {
		iv = DefaultInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	// loop until context is cancelled
	for {
		select {
		case <-ctx.Done():
			println("[MAIN] heartbeat stopping")
			return ctx.Err()
		case t := <-tick.C:
			println("[MAIN] Still alive ...")
			if s.Beat != nil {
				s.Beat(t)
			}
		}
	}
}

// Run blocks, logging every Interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	return s.serviceLoop(ctx)
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the periodic expiry check.
type Scheduler struct {
	cron  *cron.Cron
	store *Store
	log   zerolog.Logger
}

// NewScheduler schedules store.CheckExpiry every interval.
func NewScheduler(store *Store, interval time.Duration, log zerolog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sc := &Scheduler{
		cron:  cron.New(),
		store: store,
		log:   log.With().Str("component", "session-scheduler").Logger(),
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := sc.cron.AddFunc(spec, sc.tick); err != nil {
		return nil, fmt.Errorf("scheduling expiry check %q: %w", spec, err)
	}
	return sc, nil
}

func (sc *Scheduler) tick() {
	if sc.store.CheckExpiry(time.Now()) {
		sc.log.Info().Msg("session expired by idle timeout")
	}
}

// Start begins running checks in the background.
func (sc *Scheduler) Start() {
	sc.cron.Start()
}

// Stop halts the scheduler and waits for a running check to finish.
func (sc *Scheduler) Stop(ctx context.Context) {
	done := sc.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

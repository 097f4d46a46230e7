// Package maintenance runs the gateway's scheduled housekeeping: expired
// sessions are purged so the sessions table does not grow without bound.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kuttalk/gateway/internal/db"
	"github.com/kuttalk/gateway/internal/logger"
)

// Janitor owns the cron scheduler.
type Janitor struct {
	cron     *cron.Cron
	sessions *db.SessionDB
}

// New creates a janitor purging expired sessions every interval.
func New(sessions *db.SessionDB, interval time.Duration) (*Janitor, error) {
	j := &Janitor{
		cron:     cron.New(),
		sessions: sessions,
	}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := j.cron.AddFunc(spec, j.purgeSessions); err != nil {
		return nil, fmt.Errorf("maintenance: schedule %q: %w", spec, err)
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := j.sessions.PurgeExpired(ctx)
	if err != nil {
		logger.Component("maintenance").Error().Err(err).Msg("Session purge failed")
		return
	}
	if purged > 0 {
		logger.Component("maintenance").Info().Int64("purged", purged).Msg("Expired sessions removed")
	}
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Janitor periodically purges idle sessions.
type Janitor struct {
	cron     *cron.Cron
	service  Service
	schedule string
}

func NewJanitor(service Service, schedule string) *Janitor {
	return &Janitor{cron: cron.New(), service: service, schedule: schedule}
}

// Start schedules the purge and returns once the scheduler runs in the background.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	log.Infof("Session janitor scheduled with %q", j.schedule)
	return nil
}

// Stop halts scheduling and waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	j.RunOnce(ctx)
}

func (j *Janitor) RunOnce(ctx context.Context) int {
	ids, err := j.service.PurgeIdle(ctx)
	if err != nil {
		log.Errorf("failed to purge idle sessions: %v", err)
		return 0
	}
	if len(ids) > 0 {
		log.Infof("Purged %d idle sessions", len(ids))
	}
	return len(ids)
}

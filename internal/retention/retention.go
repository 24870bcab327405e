// Package retention purges read notifications on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger deletes read notifications created before a cutoff.
type Purger interface {
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job removes read notifications older than Retention.
type Job struct {
	Purger    Purger
	Retention time.Duration
	Schedule  cron.Schedule
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewJob parses a standard 5-field schedule and returns a Job.
func NewJob(p Purger, retention time.Duration, schedule string) (*Job, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("retention: parse schedule %q: %w", schedule, err)
	}
	return &Job{Purger: p, Retention: retention, Schedule: sched}, nil
}

func (j *Job) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// RunOnce purges once and returns the number of deleted rows.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.Retention)
	n, err := j.Purger.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: purge: %w", err)
	}
	return n, nil
}

// next returns how long to wait for the next fire time.
func (j *Job) next() time.Duration {
	d := time.Until(j.Schedule.Next(j.now()))
	if d < 0 {
		return 0
	}
	return d
}

// Run fires the job on schedule until ctx is cancelled.
func (j *Job) Run(ctx context.Context) {
	timer := time.NewTimer(j.next())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			n, err := j.RunOnce(ctx)
			if err != nil {
				log.Printf("retention: %v", err)
			} else if n > 0 {
				log.Printf("retention: purged %d read notifications", n)
			}
			timer.Reset(j.next())
		}
	}
}

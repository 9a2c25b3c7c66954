package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Job is a unit of background work run by the Scheduler.
type Job interface {
	// Name identifies the job in logs and on-demand runs.
	Name() string
	// Schedule is a cron expression. An empty schedule registers an on-demand job.
	Schedule() string
	Run(ctx context.Context) error
}

// FuncJob adapts a function to Job.
type FuncJob struct {
	JobName     string
	JobSchedule string
	Fn          func(ctx context.Context) error
}

func (j FuncJob) Name() string                  { return j.JobName }
func (j FuncJob) Schedule() string              { return j.JobSchedule }
func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }

type ViewSyncer interface {
	SyncViews(ctx context.Context) (int, error)
}

// NewViewSyncJob flushes buffered question views into the database.
func NewViewSyncJob(schedule string, views ViewSyncer) Job {
	return FuncJob{
		JobName:     "view-sync",
		JobSchedule: schedule,
		Fn: func(ctx context.Context) error {
			_, err := views.SyncViews(ctx)
			return err
		},
	}
}

type XpResyncer interface {
	ResyncAll(ctx context.Context) (int, error)
}

// NewXpResyncJob recomputes levels and ranks from stored XP.
func NewXpResyncJob(schedule string, xp XpResyncer) Job {
	return FuncJob{
		JobName:     "xp-resync",
		JobSchedule: schedule,
		Fn: func(ctx context.Context) error {
			n, err := xp.ResyncAll(ctx)
			if err != nil {
				return fmt.Errorf("resync xp: %w", err)
			}
			log.Printf("Resynced standing of %d users", n)
			return nil
		},
	}
}

type NotificationPurger interface {
	PurgeReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationRetentionJob deletes read notifications older than retention.
func NewNotificationRetentionJob(schedule string, retention time.Duration, notifications NotificationPurger) Job {
	return FuncJob{
		JobName:     "notification-retention",
		JobSchedule: schedule,
		Fn: func(ctx context.Context) error {
			n, err := notifications.PurgeReadOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				return fmt.Errorf("purge notifications: %w", err)
			}
			log.Printf("Purged %d read notifications", n)
			return nil
		},
	}
}

type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (int, error)
}

// NewAttachmentCleanupJob deletes uploads that were never attached.
func NewAttachmentCleanupJob(schedule string, attachments OrphanCleaner) Job {
	return FuncJob{
		JobName:     "attachment-cleanup",
		JobSchedule: schedule,
		Fn: func(ctx context.Context) error {
			n, err := attachments.CleanupOrphans(ctx)
			if err != nil {
				return fmt.Errorf("cleanup attachments: %w", err)
			}
			log.Printf("Removed %d orphan attachments", n)
			return nil
		},
	}
}

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/outstaff/outstaff/internal/safego"
	"github.com/outstaff/outstaff/internal/telemetry"
)

const bestEffortTimeout = 5 * time.Second

// ActivityStore persists activity feed lines
type ActivityStore interface {
	RecordActivity(ctx context.Context, orgID int64, userID *int64, action string) error
}

// ActivityRecorder writes activity feed lines in the background. A failed write is
// logged and counted but never surfaces to the request that caused it.
type ActivityRecorder struct {
	store ActivityStore
	// done, when set, is called after each write attempt
	done func(error)
}

// NewActivityRecorder creates a recorder backed by store
func NewActivityRecorder(store ActivityStore) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// Record queues one activity line for the organization
func (r *ActivityRecorder) Record(orgID int64, userID int64, action string) {
	if r == nil || r.store == nil {
		return
	}
	actor := userID
	safego.Go("activity_log", func() {
		ctx, cancel := context.WithTimeout(context.Background(), bestEffortTimeout)
		defer cancel()

		err := r.store.RecordActivity(ctx, orgID, &actor, action)
		if err != nil {
			slog.Warn("failed to record activity", "org_id", orgID, "action", action, "error", err)
			telemetry.BestEffortWriteFailuresTotal.WithLabelValues("activity_log").Inc()
		}
		if r.done != nil {
			r.done(err)
		}
	})
}

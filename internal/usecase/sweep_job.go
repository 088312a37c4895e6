package usecase

import (
	"context"
	"fmt"

	"github.com/Harry166/stro/internal/domain/models"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/queue"
)

// SweepUserJobType is the queue message type for a per-user alert sweep.
const SweepUserJobType = "alerts.sweep_user"

// SweepUserPayload is the body of an alerts.sweep_user message.
type SweepUserPayload struct {
	UserID int64 `json:"user_id"`
}

type userSweeper interface {
	SweepUser(ctx context.Context, userID int64) (models.SweepReport, error)
}

// SweepUserJob runs the alert sweep for one user off the Redis queue.
type SweepUserJob struct {
	alerts userSweeper
	l      *applogger.Logger
}

var _ queue.Job = (*SweepUserJob)(nil)

func NewSweepUserJob(alerts userSweeper, l *applogger.Logger) *SweepUserJob {
	return &SweepUserJob{alerts: alerts, l: applogger.Or(l)}
}

func (j *SweepUserJob) Name() string { return "alert-sweep-user" }
func (j *SweepUserJob) Type() string { return SweepUserJobType }

func (j *SweepUserJob) Handle(ctx context.Context, payload []byte) error {
	p, err := queue.Decode[SweepUserPayload](payload)
	if err != nil {
		return err
	}
	if p.UserID <= 0 {
		return fmt.Errorf("sweep job: invalid user id %d", p.UserID)
	}
	rep, err := j.alerts.SweepUser(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("sweep user %d: %w", p.UserID, err)
	}
	j.l.Info("alert sweep job done",
		applogger.UserID(p.UserID),
		applogger.Int("symbols", rep.Symbols),
		applogger.Int("persisted", rep.Persisted),
		applogger.Int("failed", rep.Failed))
	return nil
}

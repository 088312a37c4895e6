package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
)

type sweeperFunc func(ctx context.Context, userID int64) (models.SweepReport, error)

func (f sweeperFunc) SweepUser(ctx context.Context, userID int64) (models.SweepReport, error) {
	return f(ctx, userID)
}

func TestSweepUserJob(t *testing.T) {
	var got int64
	job := NewSweepUserJob(sweeperFunc(func(_ context.Context, id int64) (models.SweepReport, error) {
		got = id
		return models.SweepReport{Users: 1, Symbols: 2}, nil
	}), nil)

	assert.Equal(t, SweepUserJobType, job.Type())
	require.NoError(t, job.Handle(context.Background(), []byte(`{"user_id":9}`)))
	assert.Equal(t, int64(9), got)

	assert.Error(t, job.Handle(context.Background(), []byte(`{"user_id":0}`)))
	assert.Error(t, job.Handle(context.Background(), []byte(`not json`)))
}

func TestSweepUserJobPropagatesFailure(t *testing.T) {
	job := NewSweepUserJob(sweeperFunc(func(context.Context, int64) (models.SweepReport, error) {
		return models.SweepReport{}, errors.New("store down")
	}), nil)
	err := job.Handle(context.Background(), []byte(`{"user_id":1}`))
	assert.ErrorContains(t, err, "store down")
}

func TestSweepUserJobAgainstEngine(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture()
	f.monthly("NVDA", 100, 130)
	require.NoError(t, f.watchlist.Add(ctx, 4, "NVDA"))

	job := NewSweepUserJob(f.engine, nil)
	require.NoError(t, job.Handle(ctx, []byte(`{"user_id":4}`)))
	require.Equal(t, 1, f.store.count())
	assert.Equal(t, models.AlertHighGain, f.store.events[0].Type)

	// second run inside the window is a duplicate, not a new event
	require.NoError(t, job.Handle(ctx, []byte(`{"user_id":4}`)))
	assert.Equal(t, 1, f.store.count())
}

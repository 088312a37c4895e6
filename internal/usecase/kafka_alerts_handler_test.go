package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
	pkgkafka "github.com/Harry166/stro/pkg/kafka"
)

type failingSink struct{}

func (failingSink) PublishAlert(context.Context, *models.AlertEvent) error {
	return errors.New("hub closed")
}

func TestKafkaAlertsHandler(t *testing.T) {
	sink := &fakePublisher{}
	h := NewKafkaAlertsHandler("stro.alerts", sink, nil)
	assert.Equal(t, "stro.alerts", h.Topic())

	msg := []byte(`{"id":"a1","user_id":5,"symbol":"TSLA","alert_type":"high_loss","message":"TSLA is down 20.0% in the past month.","price_change":-20,"created_at":"2024-03-01T10:00:00Z"}`)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, models.AlertHighLoss, sink.alerts[0].Type)
	assert.Equal(t, int64(5), sink.alerts[0].UserID)

	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{`)), pkgkafka.ErrSkip)
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"symbol":"TSLA"}`)), pkgkafka.ErrSkip)
}

func TestKafkaAlertsHandlerSinkError(t *testing.T) {
	h := NewKafkaAlertsHandler("stro.alerts", failingSink{}, nil)
	err := h.Handle(context.Background(), []byte(`{"user_id":1,"symbol":"A"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, pkgkafka.ErrSkip)
}

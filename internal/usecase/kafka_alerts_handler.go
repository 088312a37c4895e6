package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	pkgkafka "github.com/Harry166/stro/pkg/kafka"
)

// KafkaAlertsHandler consumes the alert stream and hands events to a local
// sink, normally the websocket hub.
type KafkaAlertsHandler struct {
	topic   string
	sink    domrepo.AlertPublisher
	metrics domrepo.Metrics
}

func NewKafkaAlertsHandler(topic string, sink domrepo.AlertPublisher, metrics domrepo.Metrics) *KafkaAlertsHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &KafkaAlertsHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaAlertsHandler) Topic() string { return h.topic }

func (h *KafkaAlertsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.AlertEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode alert: %v: %w", err, pkgkafka.ErrSkip)
	}
	if ev.UserID <= 0 || ev.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("alert without user or symbol: %w", pkgkafka.ErrSkip)
	}
	if !ev.CreatedAt.IsZero() {
		h.metrics.RecordLatency("alert_delivery", time.Since(ev.CreatedAt).Seconds())
	}
	if err := h.sink.PublishAlert(ctx, &ev); err != nil {
		h.metrics.RecordError("consumer_deliver")
		return err
	}
	return nil
}

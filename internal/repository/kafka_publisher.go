package repository

import (
	"context"
	"strconv"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
)

type messageWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaPublisher streams alert events and ranking snapshots.
// Alerts are keyed by user so one user's events stay ordered.
type KafkaPublisher struct {
	w            messageWriter
	alertsTopic  string
	rankingTopic string
}

var (
	_ domrepo.AlertPublisher   = (*KafkaPublisher)(nil)
	_ domrepo.RankingPublisher = (*KafkaPublisher)(nil)
)

func NewKafkaPublisher(w messageWriter, alertsTopic, rankingTopic string) *KafkaPublisher {
	return &KafkaPublisher{w: w, alertsTopic: alertsTopic, rankingTopic: rankingTopic}
}

func (p *KafkaPublisher) PublishAlert(ctx context.Context, ev *models.AlertEvent) error {
	return p.w.Publish(ctx, p.alertsTopic, []byte(strconv.FormatInt(ev.UserID, 10)), ev)
}

func (p *KafkaPublisher) PublishRanking(ctx context.Context, snap *models.RankingSnapshot) error {
	return p.w.Publish(ctx, p.rankingTopic, []byte("ranking"), snap)
}

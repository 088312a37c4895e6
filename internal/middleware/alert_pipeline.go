package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/internal/service/ratelimit"
	applogger "github.com/Harry166/stro/pkg/logger"
)

// AlertPipeline sits between the alert engine and the notification stream.
// PublishAlert never blocks: events are validated, throttled per user and
// buffered; a background loop forwards them downstream with bounded retries.
type AlertPipeline struct {
	next    domrepo.AlertPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	limiter  *ratelimit.Limiter
	buf      chan *models.AlertEvent
	attempts int
	backoff  time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type PipelineOption func(*AlertPipeline)

func WithBufferSize(n int) PipelineOption {
	return func(p *AlertPipeline) {
		if n > 0 {
			p.buf = make(chan *models.AlertEvent, n)
		}
	}
}

// WithUserRate bounds events per user: burst, then perSec.
func WithUserRate(burst int, perSec float64) PipelineOption {
	return func(p *AlertPipeline) { p.limiter = ratelimit.New(burst, perSec) }
}

// WithRetry sets downstream attempts per event and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) PipelineOption {
	return func(p *AlertPipeline) {
		if attempts > 0 {
			p.attempts = attempts
		}
		p.backoff = backoff
	}
}

func NewAlertPipeline(next domrepo.AlertPublisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *AlertPipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &AlertPipeline{
		next:     next,
		metrics:  metrics,
		l:        applogger.Or(l),
		limiter:  ratelimit.New(10, 1),
		buf:      make(chan *models.AlertEvent, 256),
		attempts: 3,
		backoff:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the forwarding loop.
func (p *AlertPipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.started = true
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Stop forwards what is already buffered, bounded by ctx.
func (p *AlertPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("alert pipeline stop: %w", ctx.Err())
	}
}

// PublishAlert implements domrepo.AlertPublisher.
func (p *AlertPipeline) PublishAlert(_ context.Context, ev *models.AlertEvent) error {
	if err := validateAlert(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(strconv.FormatInt(ev.UserID, 10)) {
		p.metrics.RecordError("pipeline_throttle")
		p.l.Warn("alert throttled",
			applogger.UserID(ev.UserID),
			applogger.Symbol(ev.Symbol))
		return nil
	}
	select {
	case p.buf <- ev:
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		p.l.Warn("alert pipeline full, dropping event",
			applogger.String("id", ev.ID),
			applogger.UserID(ev.UserID),
			applogger.Symbol(ev.Symbol))
		return nil
	}
}

func (p *AlertPipeline) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case ev := <-p.buf:
			p.forward(ctx, ev)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *AlertPipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-p.buf:
			p.forward(ctx, ev)
		default:
			return
		}
	}
}

func (p *AlertPipeline) forward(ctx context.Context, ev *models.AlertEvent) {
	start := time.Now()
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = p.next.PublishAlert(ctx, ev); err == nil {
			p.metrics.RecordLatency("alert_forward", time.Since(start).Seconds())
			return
		}
		if attempt == p.attempts {
			break
		}
		t := time.NewTimer(backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	p.metrics.RecordError("pipeline_forward")
	p.l.Error("alert forward failed",
		applogger.String("id", ev.ID),
		applogger.Int("attempts", p.attempts),
		applogger.Error(err))
}

func validateAlert(ev *models.AlertEvent) error {
	if ev == nil {
		return fmt.Errorf("alert nil")
	}
	if ev.Symbol == "" {
		return fmt.Errorf("alert symbol empty")
	}
	if ev.Type != models.AlertHighGain && ev.Type != models.AlertHighLoss {
		return fmt.Errorf("alert type %q invalid", ev.Type)
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Harry166/stro/pkg/logger"
)

type verdict int

const (
	verdictDone verdict = iota
	verdictRetry
	verdictDead
)

// RedisQueue is a list-backed job queue with a delayed retry set and a
// dead-letter list. Keys: <name>:messages, <name>:retry, <name>:dlq.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client *redis.Client

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewRedisQueue(client *redis.Client, cfg Config, l *logger.Logger) *RedisQueue {
	cfg.withDefaults()
	return &RedisQueue{
		log:    logger.Or(l),
		cfg:    cfg,
		client: client,
		jobs:   make(map[string]Job),
		now:    time.Now,
	}
}

// RegisterJob binds a job to its message type. Later registrations for the
// same type are ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	r.cancel = stop
	r.running = true

	if len(r.jobs) > 0 {
		for i := 0; i < r.cfg.Workers; i++ {
			r.wg.Add(1)
			go r.worker(runCtx, i)
		}
		r.wg.Add(1)
		go r.retryLoop(runCtx)
	}
	r.log.Info("redis queue started",
		logger.String("name", r.cfg.Name),
		logger.Int("workers", r.cfg.Workers),
		logger.Int("jobs", len(r.jobs)))
	return nil
}

// Stop cancels the workers and waits for them or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a message of msgType with a JSON payload.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("queue not running")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   body,
		Timestamp: r.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	r.log.Debug("queue worker started", logger.Int("worker_id", id))
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollTimeout, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.log.Error("brpop", logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.log.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.settle(msg, r.dispatch(ctx, &msg))
	}
}

// dispatch runs the job for msg and decides where the message goes next.
// Attempts is incremented on failure.
func (r *RedisQueue) dispatch(ctx context.Context, msg *Message) verdict {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return verdictDead
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		r.log.Debug("job done",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Duration("elapsed", time.Since(start)))
		return verdictDone
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Shutdown interrupted the job; put it back untouched.
		return verdictRetry
	}

	msg.Attempts++
	r.log.Error("job failed",
		logger.String("job", job.Name()),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err))
	if msg.Attempts > r.cfg.MaxRetries {
		return verdictDead
	}
	return verdictRetry
}

func (r *RedisQueue) settle(msg Message, v verdict) {
	if v == verdictDone {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal message", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch v {
	case verdictRetry:
		at := r.now().Add(r.cfg.RetryDelay)
		err = r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err()
	case verdictDead:
		r.log.Warn("message moved to dlq", logger.String("id", msg.ID), logger.String("type", msg.Type))
		err = r.client.LPush(ctx, r.deadLetterKey(), data).Err()
	}
	if err != nil {
		r.log.Error("settle message", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.moveDue(ctx)
		}
	}
}

// moveDue re-queues retry entries whose time has come.
func (r *RedisQueue) moveDue(ctx context.Context) {
	due, err := r.client.ZRangeByScore(ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(ctx, r.retryKey(), member)
		pipe.LPush(ctx, r.queueKey(), member)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("move retry to queue", logger.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) queueKey() string      { return r.cfg.Name + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.cfg.Name + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.cfg.Name + ":dlq" }

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tripvera/internal/domain"
	"tripvera/internal/events"
	"tripvera/internal/models"
	"tripvera/internal/notify"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotifyTask is one email delivery unit. Tasks are serialized to the redis
// queue; the in-memory channel is the fallback when redis is missing or
// down.
type NotifyTask struct {
	EventType string                         `json:"event_type"`
	Payload   events.ReservationEventPayload `json:"payload"`
	Attempts  int                            `json:"attempts"`
	CreatedAt time.Time                      `json:"created_at"`
}

// NotifyWorker consumes reservation events and delivers emails through the
// configured mailer with exponential-backoff retries. Exhausted tasks land
// in a redis dead-letter list for manual inspection.
type NotifyWorker struct {
	mailer        domain.Mailer
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan NotifyTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

// NewNotifyWorker builds a worker with sane defaults.
func NewNotifyWorker(mailer domain.Mailer, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &NotifyWorker{
		mailer:        mailer,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan NotifyTask, models.WorkerQueueSize),
		redisQueueKey: "notify:queue",
		deadLetterKey: "notify:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logger,
	}
}

// Enqueue schedules an email for the event. Events without a recipient are
// silently skipped.
func (w *NotifyWorker) Enqueue(ctx context.Context, eventType string, payload events.ReservationEventPayload) error {
	if eventType == "" {
		return errors.New("event type is required")
	}
	if payload.UserEmail == "" {
		return nil
	}

	task := NotifyTask{
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("notify_worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("notification queue is full")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notify_worker: started")
	defer w.logger.Info().Msg("notify_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *NotifyWorker) tryLocalQueue() (NotifyTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return NotifyTask{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (NotifyTask, bool) {
	if w.redis == nil {
		return NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return NotifyTask{}, false
		}
		w.logger.Warn().Err(err).Msg("notify_worker: redis BRPOP error")
		return NotifyTask{}, false
	}
	if len(res) != 2 {
		return NotifyTask{}, false
	}
	var task NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("notify_worker: decode redis task")
		return NotifyTask{}, false
	}
	return task, true
}

func (w *NotifyWorker) processTask(ctx context.Context, task NotifyTask) {
	subject, text, html := notify.RenderReservationEmail(task.EventType, task.Payload)

	if err := w.mailer.SendReservationUpdate(ctx, task.Payload.UserEmail, subject, text, html); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	w.logger.Info().
		Int64("reservation_id", task.Payload.ReservationID).
		Str("event_type", task.EventType).
		Msg("notify_worker: email sent")
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task NotifyTask, cause error) {
	task.Attempts++
	if task.Attempts >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).
			Int64("reservation_id", task.Payload.ReservationID).
			Int("attempts", task.Attempts).
			Msg("notify_worker: giving up")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempts)
	w.logger.Warn().Err(cause).
		Int64("reservation_id", task.Payload.ReservationID).
		Int("attempts", task.Attempts).
		Dur("retry_in", delay).
		Msg("notify_worker: delivery failed, will retry")

	// Отложенный повтор, чтобы не блокировать основной цикл
	time.AfterFunc(delay, func() {
		select {
		case w.queue <- task:
		default:
			w.pushDeadLetter(context.Background(), task)
		}
	})
}

func (w *NotifyWorker) pushRedis(ctx context.Context, task NotifyTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task NotifyTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("notify_worker: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("notify_worker: deadletter push")
	}
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

const (
	TypeInquiryNotify = "inquiry:notify"
	TypeInquiryExpire = "inquiry:expire"

	QueueDefault     = "default"
	QueueMaintenance = "maintenance"
)

// Sweeps must not pile up when one runs longer than the cron interval.
const expireUniqueTTL = 10 * time.Minute

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns notifications into inquiry:notify tasks.
type Notifier struct {
	client Enqueuer
	log    logger.Logger
}

func NewNotifier(client Enqueuer, log logger.Logger) *Notifier {
	return &Notifier{client: client, log: log}
}

func (n *Notifier) Notify(ctx context.Context, notification *domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	task := asynq.NewTask(TypeInquiryNotify, payload, asynq.MaxRetry(5), asynq.Queue(QueueDefault))
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeInquiryNotify, err)
	}

	n.log.Debug("Notification enqueued", "task_id", info.ID, "inquiry_id", notification.InquiryID, "kind", notification.Kind)
	return nil
}

func NewExpireStaleTask() *asynq.Task {
	return asynq.NewTask(TypeInquiryExpire, nil, asynq.MaxRetry(0), asynq.Queue(QueueMaintenance))
}

// Sweeper runs one full expiry sweep.
type Sweeper interface {
	ExpireStale(ctx context.Context) (int, error)
}

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	sweeper Sweeper
	inbox   repository.NotificationRepository
	log     logger.Logger
}

func NewTaskProcessor(sweeper Sweeper, inbox repository.NotificationRepository, log logger.Logger) *TaskProcessor {
	return &TaskProcessor{sweeper: sweeper, inbox: inbox, log: log}
}

// HandleExpireStaleTask is not retried: the next scheduled run covers a
// failed one.
func (p *TaskProcessor) HandleExpireStaleTask(ctx context.Context, t *asynq.Task) error {
	count, err := p.sweeper.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("expiry sweep failed after %d inquiries: %w", count, err)
	}
	p.log.Debug("Expiry sweep finished", "expired", count)
	return nil
}

func (p *TaskProcessor) HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var n domain.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if _, err := repository.InboxKey(&n); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := p.inbox.Push(ctx, &n); err != nil {
		return err
	}
	return nil
}

func NewServeMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInquiryExpire, processor.HandleExpireStaleTask)
	mux.HandleFunc(TypeInquiryNotify, processor.HandleNotifyTask)
	return mux
}

// SetupServer configures a task server. The caller starts it with the mux
// from NewServeMux.
func SetupServer(rdb *redis.Client, cfg config.WorkerConfig, log logger.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueDefault:     6,
				QueueMaintenance: 2,
			},
			Logger: asynqLogger{log: log},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("Task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)
}

// NewScheduler registers the periodic expiry sweep.
func NewScheduler(rdb *redis.Client, cronSpec string, log logger.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Logger:   asynqLogger{log: log},
		Location: time.UTC,
	})

	entryID, err := scheduler.Register(cronSpec, NewExpireStaleTask(), asynq.Unique(expireUniqueTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to register expiry sweep %q: %w", cronSpec, err)
	}

	log.Info("Expiry sweep scheduled", "cron", cronSpec, "entry_id", entryID)
	return scheduler, nil
}

// asynqLogger adapts logger.Logger to asynq.Logger.
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(fmt.Sprint(args...)) }

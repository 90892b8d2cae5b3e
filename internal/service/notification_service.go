package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/pkg/config"
	"github.com/noah-isme/academy-program-api/pkg/jobs"
)

// Notifier delivers one notification intent. Implementations own
// templating and transport; this service only guarantees dispatch.
type Notifier interface {
	Send(ctx context.Context, notification models.Notification) error
}

// LogNotifier writes notification intents to the structured log. It is
// the default sink until a mail or messaging integration is plugged in.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the intent.
func (n *LogNotifier) Send(_ context.Context, notification models.Notification) error {
	n.logger.Info("notification intent",
		zap.String("kind", string(notification.Kind)),
		zap.String("recipient", notification.Recipient),
		zap.String("student_id", notification.StudentID),
		zap.String("program_id", notification.ProgramID),
		zap.String("payment_id", notification.PaymentID),
	)
	return nil
}

// NotificationService fans notification intents out to the notifier
// through a background worker pool. Publishing never blocks domain
// flows on delivery.
type NotificationService struct {
	notifier Notifier
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(notifier Notifier, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	s := &NotificationService{notifier: notifier, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish enqueues a notification intent. Errors are logged, not
// surfaced; a full queue must not fail a payment or an approval.
func (s *NotificationService) Publish(notification models.Notification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("kind", string(notification.Kind)),
			zap.String("recipient", notification.Recipient),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.notifier.Send(ctx, notification)
}

package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/pkg/metrics"
	"fintrack/pkg/moneyfmt"
	"fintrack/pkg/push"
	"fintrack/pkg/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SubscriptionStore interface {
	Upsert(ctx context.Context, s *models.PushSubscription) error
	ListAll(ctx context.Context) ([]*models.PushSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	DeleteForUser(ctx context.Context, userID uuid.UUID, endpoint string) error
}

type NotificationOptions struct {
	AppURL         string
	Currency       string
	Location       *time.Location
	VAPIDPublicKey string
}

type NotificationService struct {
	subs     SubscriptionStore
	stats    TransactionStats
	sender   push.Sender
	schedule *scheduler.Daily
	opts     NotificationOptions
	now      func() time.Time
	logger   *zap.Logger
}

// NewNotificationService wires push delivery. sender may be nil when VAPID
// keys are missing; sends then fail with ErrPushDisabled.
func NewNotificationService(subs SubscriptionStore, stats TransactionStats, sender push.Sender, schedule *scheduler.Daily, opts NotificationOptions, logger *zap.Logger) *NotificationService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Currency == "" {
		opts.Currency = moneyfmt.DefaultCurrency
	}
	return &NotificationService{
		subs:     subs,
		stats:    stats,
		sender:   sender,
		schedule: schedule,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *NotificationService) PublicKey() (string, error) {
	if s.opts.VAPIDPublicKey == "" {
		return "", ErrPushDisabled
	}
	return s.opts.VAPIDPublicKey, nil
}

func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, req *dto.SubscribeRequest) error {
	endpoint := strings.TrimSpace(req.Endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return &ValidationError{Message: "endpoint must be an https URL"}
	}
	if req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return &ValidationError{Message: "keys.p256dh and keys.auth are required"}
	}

	sub := &models.PushSubscription{
		ID:        uuid.New(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		CreatedAt: s.now(),
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return &PersistenceError{Op: "save subscription", Err: err}
	}

	s.logger.Info("Push subscription saved", zap.String("user_id", userID.String()))
	return nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, userID uuid.UUID, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return &ValidationError{Message: "endpoint is required"}
	}
	if err := s.subs.DeleteForUser(ctx, userID, endpoint); err != nil {
		return mapStoreErr("delete subscription", err)
	}
	return nil
}

// SendDaily sends every subscriber a reminder with the owner's spending for
// today in the notification timezone. Subscriptions the push service reports
// as gone are deleted.
func (s *NotificationService) SendDaily(ctx context.Context) (*dto.DeliveryReport, error) {
	if s.sender == nil {
		return nil, ErrPushDisabled
	}

	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list subscriptions", Err: err}
	}

	y, m, d := s.now().In(s.opts.Location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	spent := make(map[uuid.UUID]decimal.Decimal)
	report := &dto.DeliveryReport{}
	for _, sub := range subs {
		amount, ok := spent[sub.UserID]
		if !ok {
			totals, err := s.stats.Totals(ctx, sub.UserID, today, today)
			if err != nil {
				s.logger.Warn("Failed to load daily spend", zap.String("user_id", sub.UserID.String()), zap.Error(err))
				report.Failed++
				continue
			}
			amount = totals.Expense
			spent[sub.UserID] = amount
		}
		s.deliver(ctx, sub, s.dailyMessage(amount), report)
	}

	s.logger.Info("Daily notifications sent",
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("removed", report.Removed),
	)
	return report, nil
}

// DailyJob is the scheduler callback.
func (s *NotificationService) DailyJob(ctx context.Context) {
	if _, err := s.SendDaily(ctx); err != nil {
		s.logger.Error("Daily notification run failed", zap.Error(err))
	}
}

func (s *NotificationService) SendTest(ctx context.Context, userID uuid.UUID) (*dto.DeliveryReport, error) {
	if s.sender == nil {
		return nil, ErrPushDisabled
	}

	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list subscriptions", Err: err}
	}
	if len(subs) == 0 {
		return nil, &ValidationError{Message: "no push subscription registered for this user"}
	}

	report := &dto.DeliveryReport{}
	msg := push.Message{Title: "Test notification", Body: "Push notifications are working.", URL: s.opts.AppURL, Tag: "test"}
	for _, sub := range subs {
		s.deliver(ctx, sub, msg, report)
	}
	return report, nil
}

// CancelSchedule stops the daily reminder and clears the stored slot so a
// restart does not restore it.
func (s *NotificationService) CancelSchedule(ctx context.Context) error {
	if s.schedule == nil {
		return nil
	}
	if err := s.schedule.CancelDaily(ctx); err != nil {
		return &PersistenceError{Op: "cancel schedule", Err: err}
	}
	return nil
}

func (s *NotificationService) ScheduleStatus() scheduler.Status {
	if s.schedule == nil {
		return scheduler.Status{Timezone: s.opts.Location.String()}
	}
	return s.schedule.Status()
}

func (s *NotificationService) dailyMessage(spent decimal.Decimal) push.Message {
	body := "No expenses logged today. Don't forget to record your spending."
	if spent.IsPositive() {
		body = "You spent " + moneyfmt.Format(spent, s.opts.Currency) + " today. Log anything you missed."
	}
	return push.Message{Title: "Daily spending", Body: body, URL: s.opts.AppURL, Tag: "daily"}
}

func (s *NotificationService) deliver(ctx context.Context, sub *models.PushSubscription, msg push.Message, report *dto.DeliveryReport) {
	err := s.sender.Send(ctx, push.Subscription{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}, msg)
	switch {
	case err == nil:
		report.Sent++
		metrics.PushDeliveries.WithLabelValues("sent").Inc()
	case errors.Is(err, push.ErrGone):
		report.Removed++
		metrics.PushDeliveries.WithLabelValues("gone").Inc()
		if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			s.logger.Warn("Failed to delete stale subscription", zap.Error(err))
		}
	default:
		report.Failed++
		metrics.PushDeliveries.WithLabelValues("error").Inc()
		s.logger.Warn("Push delivery failed", zap.String("user_id", sub.UserID.String()), zap.Error(err))
	}
}

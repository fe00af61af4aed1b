package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/pkg/push"
	"fintrack/pkg/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotifications(subs *fakeSubs, stats *fakeStats, sender push.Sender) *NotificationService {
	loc, _ := time.LoadLocation("Asia/Ho_Chi_Minh")
	svc := NewNotificationService(subs, stats, sender, nil, NotificationOptions{
		AppURL:         "https://app.example.com",
		Currency:       "VND",
		Location:       loc,
		VAPIDPublicKey: "BPublic",
	}, zap.NewNop())
	// 20:30 on the 11th in UTC is already the 12th in Ho Chi Minh City
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 20, 30, 0, 0, time.UTC) }
	return svc
}

func TestSubscribe_Validates(t *testing.T) {
	subs := &fakeSubs{}
	svc := newTestNotifications(subs, &fakeStats{}, &fakeSender{})
	owner := uuid.New()

	err := svc.Subscribe(context.Background(), owner, &dto.SubscribeRequest{Endpoint: "http://push.example.com/x", Keys: dto.SubscriptionKeys{P256dh: "p", Auth: "a"}})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	err = svc.Subscribe(context.Background(), owner, &dto.SubscribeRequest{Endpoint: "https://push.example.com/x"})
	assert.True(t, errors.As(err, &ve))

	require.NoError(t, svc.Subscribe(context.Background(), owner, &dto.SubscribeRequest{Endpoint: "https://push.example.com/x", Keys: dto.SubscriptionKeys{P256dh: "p", Auth: "a"}}))
	require.Len(t, subs.subs, 1)
	assert.Equal(t, owner, subs.subs[0].UserID)

	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), uuid.New(), "https://push.example.com/x"), ErrNotFound)
	require.NoError(t, svc.Unsubscribe(context.Background(), owner, "https://push.example.com/x"))
	assert.Empty(t, subs.subs)
}

func TestSendDaily_GoneSubscriptionIsDeleted(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	subs := &fakeSubs{subs: []*models.PushSubscription{
		{UserID: alice, Endpoint: "https://push/alice-phone"},
		{UserID: alice, Endpoint: "https://push/alice-laptop"},
		{UserID: bob, Endpoint: "https://push/bob"},
	}}
	stats := &fakeStats{perUser: map[uuid.UUID]decimal.Decimal{alice: decimal.NewFromInt(250000), bob: decimal.Zero}}
	sender := &fakeSender{results: map[string]error{"https://push/alice-laptop": push.ErrGone}}
	svc := newTestNotifications(subs, stats, sender)

	report, err := svc.SendDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dto.DeliveryReport{Sent: 2, Failed: 0, Removed: 1}, *report)
	assert.Equal(t, []string{"https://push/alice-laptop"}, subs.deleted)

	// one totals query per owner, for the local calendar day
	require.Len(t, stats.ranges, 2)
	today := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, today, stats.ranges[0].from)
	assert.Equal(t, today, stats.ranges[0].to)

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].msg.Body, "You spent")
	assert.Contains(t, sender.sent[1].msg.Body, "No expenses logged today")
	assert.Equal(t, "https://app.example.com", sender.sent[0].msg.URL)
}

func TestSendDaily_TransportErrorIsCounted(t *testing.T) {
	subs := &fakeSubs{subs: []*models.PushSubscription{{UserID: uuid.New(), Endpoint: "https://push/a"}}}
	sender := &fakeSender{results: map[string]error{"https://push/a": errors.New("connection refused")}}
	svc := newTestNotifications(subs, &fakeStats{}, sender)

	report, err := svc.SendDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, subs.deleted)
}

func TestSendDaily_Disabled(t *testing.T) {
	svc := newTestNotifications(&fakeSubs{}, &fakeStats{}, nil)

	_, err := svc.SendDaily(context.Background())
	assert.ErrorIs(t, err, ErrPushDisabled)
	_, err = svc.SendTest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPushDisabled)
}

func TestSendTest_OnlyCallerSubscriptions(t *testing.T) {
	owner := uuid.New()
	subs := &fakeSubs{subs: []*models.PushSubscription{
		{UserID: owner, Endpoint: "https://push/mine"},
		{UserID: uuid.New(), Endpoint: "https://push/other"},
	}}
	sender := &fakeSender{}
	svc := newTestNotifications(subs, &fakeStats{}, sender)

	report, err := svc.SendTest(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, "https://push/mine", sender.sent[0].endpoint)

	_, err = svc.SendTest(context.Background(), uuid.New())
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestScheduleStatus_WithoutScheduler(t *testing.T) {
	svc := newTestNotifications(&fakeSubs{}, &fakeStats{}, &fakeSender{})
	st := svc.ScheduleStatus()
	assert.False(t, st.Scheduled)
	assert.Equal(t, "Asia/Ho_Chi_Minh", st.Timezone)
}

type slotStore struct {
	recs map[string]scheduler.Record
}

func (s *slotStore) Save(ctx context.Context, rec scheduler.Record) error {
	s.recs[rec.Slot] = rec
	return nil
}

func (s *slotStore) Load(ctx context.Context, slot string) (*scheduler.Record, error) {
	rec, ok := s.recs[slot]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *slotStore) Delete(ctx context.Context, slot string) error {
	delete(s.recs, slot)
	return nil
}

func TestCancelSchedule_ClearsStoredSlot(t *testing.T) {
	store := &slotStore{recs: map[string]scheduler.Record{}}
	daily := scheduler.NewDaily(store, time.UTC, zap.NewNop())
	svc := NewNotificationService(&fakeSubs{}, &fakeStats{}, &fakeSender{}, daily, NotificationOptions{Location: time.UTC}, zap.NewNop())

	_, err := daily.ScheduleDaily(context.Background(), 21, 0, svc.DailyJob)
	require.NoError(t, err)
	require.True(t, svc.ScheduleStatus().Scheduled)
	require.Len(t, store.recs, 1)

	require.NoError(t, svc.CancelSchedule(context.Background()))
	assert.False(t, svc.ScheduleStatus().Scheduled)
	assert.Empty(t, store.recs)

	restored, err := daily.Restore(context.Background(), svc.DailyJob)
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestCancelSchedule_WithoutScheduler(t *testing.T) {
	svc := newTestNotifications(&fakeSubs{}, &fakeStats{}, &fakeSender{})
	assert.NoError(t, svc.CancelSchedule(context.Background()))
}

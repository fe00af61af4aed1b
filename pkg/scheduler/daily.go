// Package scheduler fires a callback once per day at a fixed wall-clock time.
// The slot is persisted through a Store so a restarted process can re-arm it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SlotDaily is the only slot the service uses.
const SlotDaily = "daily"

var ErrInvalidTime = errors.New("invalid time of day")

// Record is the persisted state of a slot.
type Record struct {
	Slot          string
	Hour          int
	Minute        int
	ScheduledTime time.Time
	SetAt         time.Time
}

// Store persists slot records. Load returns nil, nil when nothing is stored.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, slot string) (*Record, error)
	Delete(ctx context.Context, slot string) error
}

// Callback runs each time the slot fires.
type Callback func(ctx context.Context)

type Timer interface {
	Stop() bool
}

type Status struct {
	Scheduled bool       `json:"scheduled"`
	Hour      int        `json:"hour"`
	Minute    int        `json:"minute"`
	NextFire  *time.Time `json:"nextFire,omitempty"`
	Timezone  string     `json:"timezone"`
}

type Option func(*Daily)

// WithClock replaces the wall clock and timer factory.
func WithClock(now func() time.Time, afterFunc func(time.Duration, func()) Timer) Option {
	return func(d *Daily) {
		d.now = now
		d.afterFunc = afterFunc
	}
}

// Daily manages the "daily" slot. At most one timer is armed at any time.
type Daily struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	mu       sync.Mutex
	timer    Timer
	gen      uint64
	hour     int
	minute   int
	next     time.Time
	callback Callback
}

func NewDaily(store Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	d := &Daily{
		store:  store,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		afterFunc: func(dur time.Duration, f func()) Timer {
			return time.AfterFunc(dur, f)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NextOccurrence returns the first hour:minute in loc strictly after now.
// Calling it at or past today's target yields tomorrow's.
func NextOccurrence(now time.Time, hour, minute int, loc *time.Location) (time.Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build schedule: %w", err)
	}
	return sched.Next(now.In(loc)), nil
}

// ScheduleDaily arms the slot, replacing any previous timer, and persists it.
func (d *Daily) ScheduleDaily(ctx context.Context, hour, minute int, cb Callback) (time.Time, error) {
	next, err := NextOccurrence(d.now(), hour, minute, d.loc)
	if err != nil {
		return time.Time{}, err
	}

	rec := Record{
		Slot:          SlotDaily,
		Hour:          hour,
		Minute:        minute,
		ScheduledTime: next,
		SetAt:         d.now(),
	}
	if err := d.store.Save(ctx, rec); err != nil {
		return time.Time{}, fmt.Errorf("failed to persist schedule: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.hour, d.minute, d.callback = hour, minute, cb
	d.armLocked(next)

	d.logger.Info("Daily notification scheduled",
		zap.Int("hour", hour),
		zap.Int("minute", minute),
		zap.Time("next_fire", next),
	)
	return next, nil
}

// Restore re-arms the slot from the stored record. It reports false when
// nothing was stored.
func (d *Daily) Restore(ctx context.Context, cb Callback) (bool, error) {
	rec, err := d.store.Load(ctx, SlotDaily)
	if err != nil {
		return false, fmt.Errorf("failed to load schedule: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	if _, err := d.ScheduleDaily(ctx, rec.Hour, rec.Minute, cb); err != nil {
		return false, err
	}
	return true, nil
}

// CancelDaily stops the timer and removes the stored record.
func (d *Daily) CancelDaily(ctx context.Context) error {
	d.mu.Lock()
	d.stopLocked()
	d.next = time.Time{}
	d.callback = nil
	d.mu.Unlock()

	if err := d.store.Delete(ctx, SlotDaily); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	d.logger.Info("Daily notification cancelled")
	return nil
}

func (d *Daily) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{Timezone: d.loc.String()}
	if d.timer == nil {
		return st
	}
	next := d.next
	st.Scheduled = true
	st.Hour = d.hour
	st.Minute = d.minute
	st.NextFire = &next
	return st
}

func (d *Daily) armLocked(next time.Time) {
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.next = next
	d.timer = d.afterFunc(next.Sub(d.now()), func() { d.fire(gen) })
}

func (d *Daily) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire runs the callback and re-arms for the following day. A fire from a
// timer that has since been replaced or cancelled is ignored.
func (d *Daily) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	cb := d.callback
	d.mu.Unlock()

	ctx := context.Background()
	if cb != nil {
		cb(ctx)
	}

	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	next, err := NextOccurrence(d.now(), d.hour, d.minute, d.loc)
	if err != nil {
		d.mu.Unlock()
		d.logger.Error("Failed to re-arm daily notification", zap.Error(err))
		return
	}
	d.armLocked(next)
	rec := Record{Slot: SlotDaily, Hour: d.hour, Minute: d.minute, ScheduledTime: next, SetAt: d.now()}
	d.mu.Unlock()

	if err := d.store.Save(ctx, rec); err != nil {
		d.logger.Warn("Failed to persist re-armed schedule", zap.Error(err))
	}
	d.logger.Info("Daily notification re-armed", zap.Time("next_fire", next))
}

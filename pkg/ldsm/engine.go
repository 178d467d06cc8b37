// Package ldsm implements the low disk space monitor: it polls the
// mounted filesystems, decides which ones lack free space and asks a
// Notifier to warn the user, without flooding them.
package ldsm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/housekeeping/internal/mounts"
	"github.com/formicidae-tracker/housekeeping/internal/trash"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/formicidae-tracker/housekeeping/pkg/ldsm"

// MountStatus is the last known state of a relevant mount.
type MountStatus struct {
	Mount        housekeeping.MountRecord
	Severity     housekeeping.Severity
	Notification NotificationRecord

	// FillRate is the estimated number of bytes written per second.
	FillRate int64
}

// An Engine is the low disk space monitor. The host owns it and
// drives its lifetime with Start and Stop.
type Engine struct {
	mx sync.Mutex

	newInventory func(housekeeping.Config) Inventory
	watcher      MountWatcher
	emptier      TrashEmptier
	notifier     Notifier
	now          func() time.Time

	config   housekeeping.Config
	tracker  *tracker
	schedule *schedule
	trash    *trashCoordinator

	degraded  atomic.Bool
	published atomic.Pointer[[]MountStatus]

	logger *logrus.Entry
	tracer trace.Tracer
}

// An Option customizes the collaborators of an Engine.
type Option func(e *Engine)

// WithInventory replaces the system mount inventory.
func WithInventory(factory func(housekeeping.Config) Inventory) Option {
	return func(e *Engine) {
		e.newInventory = factory
	}
}

func WithMountWatcher(watcher MountWatcher) Option {
	return func(e *Engine) {
		e.watcher = watcher
	}
}

func WithTrashEmptier(emptier TrashEmptier) Option {
	return func(e *Engine) {
		e.emptier = emptier
	}
}

// WithClock replaces time.Now for notification rate limiting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns a stopped Engine reporting to notifier. By
// default it monitors the mounts of the running system and empties
// the freedesktop.org trash cans.
func NewEngine(notifier Notifier, options ...Option) *Engine {
	e := &Engine{
		newInventory: func(c housekeeping.Config) Inventory {
			return mounts.NewInventory(c)
		},
		watcher:  mounts.NewWatcher(),
		emptier:  trash.NewEmptier(),
		notifier: notifier,
		now:      time.Now,
		logger:   tm.NewLogger("ldsm"),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, o := range options {
		o(e)
	}
	e.registerMetrics()
	return e
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, "ldsm error")
		span.RecordError(err)
	}
	span.End()
}

func (e *Engine) isStarted() bool {
	return e.schedule != nil
}

// Start validates config, evaluates all mounts once and then keeps
// monitoring them in the background until Stop is called. ctx only
// bounds the initial evaluation: if it is cancelled before its end,
// the Engine is not started.
func (e *Engine) Start(ctx context.Context, config housekeeping.Config) (err error) {
	ctx, span := e.tracer.Start(ctx, "Start")
	defer func() { endSpan(span, err) }()

	e.mx.Lock()
	defer e.mx.Unlock()

	if e.isStarted() == true {
		return &housekeeping.StartError{Err: housekeeping.ErrAlreadyStarted}
	}
	if err := config.Validate(); err != nil {
		return &housekeeping.StartError{Err: err}
	}

	e.config = config
	e.tracker = newTracker(config)
	inventory := e.newInventory(config)

	if err := e.pass(ctx, inventory, e.tracker); err != nil {
		if ctx.Err() != nil {
			e.tracker = nil
			return &housekeeping.StartError{Err: ctx.Err()}
		}
		e.logger.WithError(err).Warn("initial evaluation failed")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := newSchedule(cancel)
	s.events = e.subscribe(runCtx)
	e.schedule = s
	e.trash = newTrashCoordinator(runCtx, e.emptier, e.notifier, e.warnedMounts, s.request)

	go e.run(runCtx, inventory, e.tracker, s)

	e.logger.WithField("interval", config.PollInterval).Info("started")
	return nil
}

func (e *Engine) subscribe(ctx context.Context) <-chan struct{} {
	events, err := e.watcher.Watch(ctx)
	if err != nil {
		e.logger.WithError(&housekeeping.SchedulerError{Err: err}).
			Warn("monitoring on interval only")
		e.degraded.Store(true)
		return nil
	}
	e.degraded.Store(false)
	return events
}

// Stop halts monitoring, cancelling any evaluation in progress, and
// withdraws the notifications still displayed. It is a no-op on a
// stopped Engine.
func (e *Engine) Stop() {
	_, span := e.tracer.Start(context.Background(), "Stop")
	defer span.End()

	e.mx.Lock()
	defer e.mx.Unlock()

	if e.isStarted() == false {
		return
	}

	e.schedule.cancel()
	<-e.schedule.done

	paths := make([]string, 0, len(e.tracker.records))
	for path, r := range e.tracker.records {
		if r.HasNotification() == true {
			paths = append(paths, path)
		}
	}
	for _, path := range paths {
		e.withdraw(path)
	}

	e.schedule = nil
	e.tracker = nil
	e.trash = nil
	e.published.Store(nil)
	e.degraded.Store(false)
	e.logger.Info("stopped")
}

// Dismiss records that the user dismissed the notification of
// mountPath. It is silenced until the mount gets worse.
func (e *Engine) Dismiss(mountPath string) error {
	e.mx.Lock()
	s := e.schedule
	e.mx.Unlock()
	if s == nil {
		return housekeeping.ErrNotStarted
	}

	select {
	case s.dismissals <- mountPath:
		return nil
	case <-s.done:
		return housekeeping.ErrNotStarted
	}
}

// EmptyTrash empties the trash cans of the user, and re-evaluates the
// mounts once done. It does not wait for, nor block, the current
// evaluation.
func (e *Engine) EmptyTrash(ctx context.Context) (err error) {
	ctx, span := e.tracer.Start(ctx, "EmptyTrash")
	defer func() { endSpan(span, err) }()

	e.mx.Lock()
	coordinator := e.trash
	e.mx.Unlock()
	if coordinator == nil {
		return housekeeping.ErrNotStarted
	}
	return coordinator.EmptyTrash(ctx)
}

// Status returns the state of every relevant mount as of the last
// evaluation, or nil if the Engine is stopped.
func (e *Engine) Status() []MountStatus {
	statuses := e.published.Load()
	if statuses == nil {
		return nil
	}
	return append([]MountStatus(nil), (*statuses)...)
}

// Degraded reports whether the Engine could not subscribe to mount
// table changes and only polls on its interval.
func (e *Engine) Degraded() bool {
	return e.degraded.Load()
}

func (e *Engine) warnedMounts() []string {
	res := []string{}
	for _, s := range e.Status() {
		if s.Notification.HasNotification() == true {
			res = append(res, s.Mount.Path)
		}
	}
	return res
}

func (e *Engine) publish(t *tracker) {
	statuses := make([]MountStatus, 0, len(t.observations))
	for _, o := range t.observations {
		record, ok := t.records[o.Mount.Path]
		if ok == false {
			record = NotificationRecord{Path: o.Mount.Path, State: Clear}
		}
		statuses = append(statuses, MountStatus{
			Mount:        o.Mount,
			Severity:     o.Severity,
			Notification: record,
			FillRate:     t.fillRates[o.Mount.Path],
		})
	}
	e.published.Store(&statuses)
}

func (e *Engine) perform(actions []action) {
	for _, a := range actions {
		logger := e.logger.WithFields(logrus.Fields{
			"path":         a.Path,
			"notification": a.ID,
		})
		switch a.Kind {
		case showAction:
			logger.WithField("severity", a.Severity).Info("low disk space")
			if err := e.notifier.Show(a.Path, a.Severity, a.Message); err != nil {
				logger.WithError(err).Error("could not show notification")
			}
		case withdrawAction:
			logger.Debug("withdrawing notification")
			e.withdraw(a.Path)
		}
	}
}

func (e *Engine) withdraw(path string) {
	err := e.notifier.Withdraw(path)
	if err == nil || errors.Is(err, housekeeping.ErrWithdrawUnsupported) == true {
		return
	}
	e.logger.WithError(err).WithField("path", path).Error("could not withdraw notification")
}

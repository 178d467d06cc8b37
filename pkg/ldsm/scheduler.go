package ldsm

import (
	"context"
	"time"

	"github.com/formicidae-tracker/housekeeping"
)

// schedule holds the channels feeding the scheduler go routine.
type schedule struct {
	cancel context.CancelFunc
	done   chan struct{}

	// events and requests hold at most one pending trigger, any
	// other one arriving meanwhile is coalesced.
	events     <-chan struct{}
	requests   chan struct{}
	dismissals chan string
}

func newSchedule(cancel context.CancelFunc) *schedule {
	return &schedule{
		cancel:     cancel,
		done:       make(chan struct{}),
		requests:   make(chan struct{}, 1),
		dismissals: make(chan string),
	}
}

// request asks for an evaluation as soon as possible.
func (s *schedule) request() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// run is the scheduler loop. It is the only go routine touching t
// once started, so evaluations never overlap.
func (e *Engine) run(ctx context.Context, inventory Inventory, t *tracker, s *schedule) {
	defer close(s.done)

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounced <-chan time.Time
	stopDebounce := func() {
		if debounce != nil {
			debounce.Stop()
			debounce, debounced = nil, nil
		}
	}
	defer stopDebounce()

	events := s.events
	closeEvents := func() {
		e.logger.Warn("mount table watcher stopped, monitoring on interval only")
		e.degraded.Store(true)
		events = nil
	}

	// takePending consumes the triggers received during a pass, and
	// reports whether any was.
	takePending := func() bool {
		pending := false
		for {
			select {
			case <-ticker.C:
				pending = true
			case <-s.requests:
				pending = true
			case <-debounced:
				debounce, debounced = nil, nil
				pending = true
			case _, ok := <-events:
				if ok == false {
					closeEvents()
					continue
				}
				pending = true
			default:
				if pending == true {
					stopDebounce()
				}
				return pending
			}
		}
	}

	// evaluate runs a pass, then a single follow-up pass for all the
	// triggers received meanwhile.
	evaluate := func() {
		for {
			e.runPass(ctx, inventory, t)
			if ctx.Err() != nil || takePending() == false {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evaluate()
		case <-s.requests:
			evaluate()
		case _, ok := <-events:
			if ok == false {
				closeEvents()
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(t.config.Debounce)
				debounced = debounce.C
			}
		case <-debounced:
			debounce, debounced = nil, nil
			evaluate()
		case path := <-s.dismissals:
			if t.dismiss(path) == false {
				e.logger.WithField("path", path).Debug("ignoring dismissal of mount without notification")
				continue
			}
			e.logger.WithField("path", path).Info("notification dismissed")
			e.publish(t)
		}
	}
}

func (e *Engine) runPass(ctx context.Context, inventory Inventory, t *tracker) {
	if err := e.pass(ctx, inventory, t); err != nil && ctx.Err() == nil {
		e.logger.WithError(err).Error("evaluation failed")
	}
}

// pass evaluates all mounts and notifies the changes. The tracker is
// either fully updated, or left untouched if ctx is cancelled before
// the end of the evaluation.
func (e *Engine) pass(ctx context.Context, inventory Inventory, t *tracker) (err error) {
	ctx, span := e.tracer.Start(ctx, "pass")
	defer func() { endSpan(span, err) }()

	records, err := inventory.Snapshot(ctx)
	if err != nil {
		return err
	}

	observations := make([]observation, 0, len(records))
	for _, r := range records {
		observations = append(observations, observation{
			Mount:    r,
			Severity: housekeeping.Evaluate(r, t.config),
		})
	}

	now := e.now()
	next, actions := t.plan(observations, now)

	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit(next, observations, now)
	e.publish(t)
	e.perform(actions)
	return nil
}

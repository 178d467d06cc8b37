package ldsm

import (
	"fmt"
	"sort"
	"time"

	"github.com/atuleu/go-humanize"
	"github.com/formicidae-tracker/housekeeping"
	"github.com/google/uuid"
)

// State is the notification state of a single mount.
type State int

const (
	Clear State = iota
	WarnedLow
	WarnedCritical
	Dismissed
)

func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case WarnedLow:
		return "warned-low"
	case WarnedCritical:
		return "warned-critical"
	case Dismissed:
		return "dismissed"
	}
	return fmt.Sprintf("<unknown state %d>", int(s))
}

func warnedState(severity housekeeping.Severity) State {
	if severity == housekeeping.Critical {
		return WarnedCritical
	}
	return WarnedLow
}

// A NotificationRecord is the suppression state of a mount with low
// free space. Mounts with enough free space have no record.
type NotificationRecord struct {
	Path     string
	State    State
	Severity housekeeping.Severity

	// Emitted is the severity of the last notification shown, at
	// LastEmission, when FreeRatio was free.
	Emitted      housekeeping.Severity
	LastEmission time.Time
	FreeRatio    float64

	// ID identifies the last notification shown.
	ID uuid.UUID
}

// HasNotification reports whether a notification may still be
// displayed for this record, dismissed ones included.
func (r NotificationRecord) HasNotification() bool {
	return r.State != Clear
}

type observation struct {
	Mount    housekeeping.MountRecord
	Severity housekeeping.Severity
}

type actionKind int

const (
	showAction actionKind = iota
	withdrawAction
)

type action struct {
	Kind     actionKind
	Path     string
	Severity housekeeping.Severity
	Message  string
	ID       uuid.UUID
}

// tracker holds the NotificationRecord of every mount. It is owned by
// the scheduler go routine and never shared.
type tracker struct {
	config       housekeeping.Config
	records      map[string]NotificationRecord
	observations []observation

	estimators map[string]*fillRateEstimator
	fillRates  map[string]int64
}

func newTracker(config housekeeping.Config) *tracker {
	return &tracker{
		config:     config,
		records:    make(map[string]NotificationRecord),
		estimators: make(map[string]*fillRateEstimator),
		fillRates:  make(map[string]int64),
	}
}

// plan computes, without modifying the tracker, the table resulting
// from a new set of observations and the notification actions to
// perform.
func (t *tracker) plan(observations []observation, now time.Time) (map[string]NotificationRecord, []action) {
	next := make(map[string]NotificationRecord, len(t.records))
	actions := []action{}
	seen := make(map[string]bool, len(observations))

	for _, o := range observations {
		path := o.Mount.Path
		seen[path] = true

		previous, tracked := t.records[path]
		record, a := t.transition(previous, tracked, o, now)
		if record.State != Clear {
			next[path] = record
		}
		if a != nil {
			actions = append(actions, *a)
		}
	}

	gone := make([]string, 0)
	for path := range t.records {
		if seen[path] == false {
			gone = append(gone, path)
		}
	}
	sort.Strings(gone)
	for _, path := range gone {
		if t.records[path].HasNotification() == true {
			actions = append(actions, action{Kind: withdrawAction, Path: path, ID: t.records[path].ID})
		}
	}

	return next, actions
}

func (t *tracker) transition(previous NotificationRecord, tracked bool, o observation, now time.Time) (NotificationRecord, *action) {
	if tracked == false {
		if o.Severity == housekeeping.Ok {
			return NotificationRecord{Path: o.Mount.Path, State: Clear}, nil
		}
		return t.emit(o, now)
	}

	switch {
	case o.Severity == housekeeping.Ok:
		return NotificationRecord{Path: o.Mount.Path, State: Clear},
			&action{Kind: withdrawAction, Path: o.Mount.Path, ID: previous.ID}
	case o.Severity > previous.Emitted:
		// escalation always notifies, even when dismissed or rate
		// limited. It is measured against the last notification
		// shown, so a mount oscillating around a threshold does not
		// escalate on each oscillation.
		return t.emit(o, now)
	case t.shouldRearm(previous, o, now):
		return t.emit(o, now)
	}

	record := previous
	record.Severity = o.Severity
	if record.State != Dismissed {
		record.State = warnedState(o.Severity)
	}
	return record, nil
}

// shouldRearm reports whether a mount that kept its severity must be
// notified again: min_notify_period elapsed since the last
// notification and the free ratio dropped by more than
// free_percent_notify_again since then.
func (t *tracker) shouldRearm(previous NotificationRecord, o observation, now time.Time) bool {
	if now.Sub(previous.LastEmission) < t.config.MinNotifyPeriod {
		return false
	}
	return previous.FreeRatio-o.Mount.FreeRatio() > t.config.FreePercentNotifyAgain
}

func (t *tracker) emit(o observation, now time.Time) (NotificationRecord, *action) {
	record := NotificationRecord{
		Path:         o.Mount.Path,
		State:        warnedState(o.Severity),
		Severity:     o.Severity,
		Emitted:      o.Severity,
		LastEmission: now,
		FreeRatio:    o.Mount.FreeRatio(),
		ID:           uuid.New(),
	}
	return record, &action{
		Kind:     showAction,
		Path:     o.Mount.Path,
		Severity: o.Severity,
		Message:  buildMessage(o, t.fillRates[o.Mount.Path]),
		ID:       record.ID,
	}
}

func (t *tracker) commit(next map[string]NotificationRecord, observations []observation, now time.Time) {
	t.records = next
	t.observations = observations

	fillRates := make(map[string]int64, len(observations))
	for _, o := range observations {
		path := o.Mount.Path
		e, ok := t.estimators[path]
		if ok == false {
			t.estimators[path] = newFillRateEstimator(o.Mount.Free, now)
			fillRates[path] = 0
			continue
		}
		fillRates[path] = e.Estimate(o.Mount.Free, now)
	}
	for path := range t.estimators {
		if _, ok := fillRates[path]; ok == false {
			delete(t.estimators, path)
		}
	}
	t.fillRates = fillRates
}

// dismiss marks the notification of path as dismissed by the user.
// It returns false if no notification is displayed for path.
func (t *tracker) dismiss(path string) bool {
	record, ok := t.records[path]
	if ok == false || (record.State != WarnedLow && record.State != WarnedCritical) {
		return false
	}
	record.State = Dismissed
	t.records[path] = record
	return true
}

func buildMessage(o observation, bytesPerSecond int64) string {
	free := humanize.ByteSize(o.Mount.Free)
	percent := 100.0 * o.Mount.FreeRatio()
	var res string
	if o.Severity == housekeeping.Critical {
		res = fmt.Sprintf("The volume “%s” is almost full: only %s remaining (%.1f%% free). "+
			"Free up disk space by emptying the trash or removing unused files.",
			o.Mount.Path, free, percent)
	} else {
		res = fmt.Sprintf("The volume “%s” has only %s disk space remaining (%.1f%% free).",
			o.Mount.Path, free, percent)
	}
	if eta, ok := timeToFull(o.Mount.Free, bytesPerSecond); ok == true {
		res += fmt.Sprintf(" At the current rate, it will be full in about %s.",
			humanize.Duration(eta.Round(time.Minute)))
	}
	return res
}

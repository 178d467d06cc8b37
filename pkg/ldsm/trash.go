package ldsm

import (
	"context"
	"errors"

	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const emptyTrashAction = "empty-trash"

// trashCoordinator runs the trash emptying action requested by the
// user. It only reads the published mount statuses, and lets the
// next evaluation decide whether the situation improved. The action
// runs on the Engine context: it is only interrupted by Stop.
type trashCoordinator struct {
	ctx      context.Context
	emptier  TrashEmptier
	notifier Notifier
	warned   func() []string
	evaluate func()

	group  singleflight.Group
	logger *logrus.Entry
}

func newTrashCoordinator(ctx context.Context, emptier TrashEmptier, notifier Notifier, warned func() []string, evaluate func()) *trashCoordinator {
	return &trashCoordinator{
		ctx:      ctx,
		emptier:  emptier,
		notifier: notifier,
		warned:   warned,
		evaluate: evaluate,
		logger:   tm.NewLogger("trash-action"),
	}
}

// EmptyTrash empties the trash. Concurrent calls share the same
// underlying action and its result. Cancelling ctx only stops waiting
// for the action.
func (t *trashCoordinator) EmptyTrash(ctx context.Context) error {
	results := t.group.DoChan(emptyTrashAction, func() (interface{}, error) {
		return nil, t.empty(t.ctx)
	})

	select {
	case r := <-results:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *trashCoordinator) empty(ctx context.Context) error {
	mountPaths := t.warned()
	t.logger.WithField("mounts", mountPaths).Info("emptying trash")

	if err := t.emptier.Empty(ctx, mountPaths); err != nil {
		if ctx.Err() != nil || isCancellation(err) == true {
			t.logger.WithError(err).Info("trash emptying interrupted")
			return err
		}
		terr := &housekeeping.TrashError{Err: err}
		t.logger.WithError(err).Error("could not empty trash")
		t.notifier.ReportFailure(emptyTrashAction, terr)
		return terr
	}

	t.evaluate()
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

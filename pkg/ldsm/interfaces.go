package ldsm

import (
	"context"

	"github.com/formicidae-tracker/housekeeping"
)

//go:generate mockgen -source=interfaces.go -destination=mock_ldsm_test.go -package=ldsm -self_package=github.com/formicidae-tracker/housekeeping/pkg/ldsm

// Inventory lists the mounts to evaluate. Mounts that cannot be
// queried must be left out of the snapshot rather than reported as
// an error.
type Inventory interface {
	Snapshot(ctx context.Context) ([]housekeeping.MountRecord, error)
}

// MountWatcher reports mount table changes until ctx is done, then
// closes the returned channel.
type MountWatcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// TrashEmptier empties the user trash cans: the home one and the
// ones located on mountPaths.
type TrashEmptier interface {
	Empty(ctx context.Context, mountPaths []string) error
}

// Notifier is implemented by the host to display low disk space
// warnings. Withdraw may return housekeeping.ErrWithdrawUnsupported.
type Notifier interface {
	Show(mountPath string, severity housekeeping.Severity, message string) error
	Withdraw(mountPath string) error
	ReportFailure(action string, err error)
}

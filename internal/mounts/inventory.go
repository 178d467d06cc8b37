// Package mounts lists the mounted filesystems worth watching for low
// disk space, and reports changes of the mount table.
package mounts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// An Entry is a line of the OS mount table.
type Entry struct {
	Path    string
	Device  string
	Kind    string
	Options []string
}

// PartitionTable lists the current mount table.
type PartitionTable interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// StatfsProvider defines Statfs methods needed for capacity checking.
type StatfsProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
}

type gopsutilTable struct{}

// NewPartitionTable returns the PartitionTable of the running system.
func NewPartitionTable() PartitionTable {
	return gopsutilTable{}
}

func (gopsutilTable) Entries(ctx context.Context) ([]Entry, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("could not list partitions: %w", err)
	}
	res := make([]Entry, 0, len(partitions))
	for _, p := range partitions {
		res = append(res, Entry{
			Path:    p.Mountpoint,
			Device:  p.Device,
			Kind:    p.Fstype,
			Options: p.Opts,
		})
	}
	return res, nil
}

type unixStatfs struct{}

func (unixStatfs) Statfs(path string, buf *unix.Statfs_t) error {
	return unix.Statfs(path, buf)
}

// Inventory produces snapshots of the user relevant mounts.
type Inventory struct {
	table  PartitionTable
	statfs StatfsProvider
	config housekeeping.Config
	logger *logrus.Entry
}

// NewInventory returns an Inventory of the running system.
func NewInventory(config housekeeping.Config) *Inventory {
	return NewInventoryWith(config, NewPartitionTable(), unixStatfs{})
}

// NewInventoryWith returns an Inventory using the given mount table
// and statfs implementations.
func NewInventoryWith(config housekeeping.Config, table PartitionTable, statfs StatfsProvider) *Inventory {
	return &Inventory{
		table:  table,
		statfs: statfs,
		config: config,
		logger: tm.NewLogger("mounts"),
	}
}

// Snapshot returns the relevant mounts sorted by path. Mounts that
// cannot be queried are dropped. Only a failure to read the mount
// table itself is reported as an error.
func (i *Inventory) Snapshot(ctx context.Context) ([]housekeeping.MountRecord, error) {
	all, err := i.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]housekeeping.MountRecord, 0, len(all))
	for _, r := range all {
		if r.Relevant == true {
			res = append(res, r)
		}
	}
	return res, nil
}

// List returns every mount whose capacity could be queried, with its
// Relevant flag set. Virtual filesystems are never statted.
func (i *Inventory) List(ctx context.Context) ([]housekeeping.MountRecord, error) {
	entries, err := i.table.Entries(ctx)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]housekeeping.MountRecord, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if isVirtualKind(e.Kind) == true {
			continue
		}

		record, err := i.query(ctx, e)
		if err != nil {
			i.logger.WithError(err).WithField("path", e.Path).Debug("dropping mount")
			continue
		}
		// stacked mounts: the last one hides the previous ones
		byPath[record.Path] = record
	}

	res := make([]housekeeping.MountRecord, 0, len(byPath))
	for _, r := range byPath {
		res = append(res, r)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].Path < res[b].Path })
	return res, nil
}

func (i *Inventory) query(ctx context.Context, e Entry) (housekeeping.MountRecord, error) {
	stat, err := i.stat(ctx, e)
	if err != nil {
		return housekeeping.MountRecord{}, &housekeeping.InventoryError{Path: e.Path, Err: err}
	}
	if stat.Blocks == 0 {
		return housekeeping.MountRecord{}, &housekeeping.InventoryError{
			Path: e.Path,
			Err:  errors.New("filesystem reports no capacity"),
		}
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	free := int64(stat.Bavail) * int64(stat.Bsize)
	if free > total {
		free = total
	}

	res := housekeeping.MountRecord{
		Path:   e.Path,
		Device: e.Device,
		Kind:   e.Kind,
		Total:  total,
		Free:   free,
	}
	res.Relevant = i.isRelevant(e, total, isReadOnlyStat(&stat))
	return res, nil
}

func (i *Inventory) isRelevant(e Entry, total int64, readOnly bool) bool {
	switch {
	case readOnly || isReadOnly(e.Options):
		return false
	case underAnyPrefix(e.Path, systemPaths):
		return false
	case underAnyPrefix(e.Path, i.config.IgnoredMountPaths):
		return false
	case lo.Contains(i.config.IgnoredFilesystemKinds, e.Kind):
		return false
	case total < i.config.MinTotalSize:
		return false
	}
	return true
}

func (i *Inventory) stat(ctx context.Context, e Entry) (unix.Statfs_t, error) {
	if isNetworkKind(e.Kind) == false {
		var stat unix.Statfs_t
		err := i.statfs.Statfs(e.Path, &stat)
		return stat, err
	}
	return i.statWithTimeout(ctx, e.Path, i.config.NetworkTimeout)
}

type statResult struct {
	stat unix.Statfs_t
	err  error
}

// statWithTimeout runs statfs(2) in its own go routine. On timeout
// the go routine is left behind, it ends whenever the kernel gives
// up on the remote server.
func (i *Inventory) statWithTimeout(ctx context.Context, path string, timeout time.Duration) (unix.Statfs_t, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan statResult, 1)
	go func() {
		var stat unix.Statfs_t
		err := i.statfs.Statfs(path, &stat)
		results <- statResult{stat: stat, err: err}
	}()

	select {
	case r := <-results:
		return r.stat, r.err
	case <-ctx.Done():
		return unix.Statfs_t{}, fmt.Errorf("statfs did not answer: %w", ctx.Err())
	}
}

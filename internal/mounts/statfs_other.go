//go:build !linux

package mounts

import "golang.org/x/sys/unix"

// the mount options are the only read-only indicator here.
func isReadOnlyStat(stat *unix.Statfs_t) bool {
	return false
}

//go:build linux

package mounts

import "golang.org/x/sys/unix"

func isReadOnlyStat(stat *unix.Statfs_t) bool {
	return stat.Flags&unix.ST_RDONLY != 0
}

package mounts

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// virtualKinds are pseudo filesystems that never hold user data.
var virtualKinds = []string{
	"autofs", "binfmt_misc", "bpf", "cgroup", "cgroup2", "configfs",
	"debugfs", "devfs", "devpts", "devtmpfs", "efivarfs", "fdescfs",
	"fuse.gvfsd-fuse", "fuse.portal", "fusectl", "hugetlbfs", "kernfs",
	"linprocfs", "mqueue", "nsfs", "nfsd", "overlay", "proc", "procfs",
	"pstore", "ramfs", "rootfs", "rpc_pipefs", "securityfs",
	"selinuxfs", "squashfs", "sysfs", "tmpfs", "tracefs",
}

// networkKinds are queried with a timeout, as a stale server can
// block statfs(2) for a very long time.
var networkKinds = []string{
	"9p", "afs", "ceph", "cifs", "davfs", "fuse.sshfs", "glusterfs",
	"ncpfs", "nfs", "nfs4", "smb3", "smbfs", "sshfs",
}

// systemPaths hold mounts managed by the system rather than by the
// user.
var systemPaths = []string{
	"/boot/efi", "/dev", "/proc", "/snap", "/sys",
	"/var/lib/containers", "/var/lib/docker",
}

func isVirtualKind(kind string) bool {
	return lo.Contains(virtualKinds, kind)
}

func isNetworkKind(kind string) bool {
	return lo.Contains(networkKinds, kind)
}

// hasPathPrefix reports whether path is prefix or lies below it. It
// works on path segments: "/mnt" is a prefix of "/mnt/a" but not of
// "/mntx".
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func underAnyPrefix(path string, prefixes []string) bool {
	return lo.ContainsBy(prefixes, func(prefix string) bool {
		return hasPathPrefix(path, prefix)
	})
}

func isReadOnly(options []string) bool {
	return lo.Contains(options, "ro")
}

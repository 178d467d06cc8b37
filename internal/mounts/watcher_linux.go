//go:build linux

package mounts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const mountInfoPath = "/proc/self/mountinfo"

// pollTimeoutMs bounds how long the watcher go routine takes to
// notice its context cancellation.
const pollTimeoutMs = 250

// A Watcher reports mount table changes. The kernel flags
// /proc/self/mountinfo with POLLPRI|POLLERR whenever a filesystem
// is mounted or unmounted.
type Watcher struct {
	path   string
	logger *logrus.Entry
}

func NewWatcher() *Watcher {
	return &Watcher{
		path:   mountInfoPath,
		logger: tm.NewLogger("mount-watcher"),
	}
}

// Watch starts watching the mount table until ctx is done. Changes
// are coalesced: at most one event is pending on the returned
// channel, which is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", w.path, err)
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer f.Close()
		if err := w.loop(ctx, f, events); err != nil {
			w.logger.WithError(err).Error("stopped watching mount table")
		}
	}()

	return events, nil
}

func (w *Watcher) loop(ctx context.Context, f *os.File, events chan<- struct{}) error {
	fds := []unix.PollFd{
		{Fd: int32(f.Fd()), Events: unix.POLLPRI | unix.POLLERR},
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) == true {
				continue
			}
			return err
		}
		if n == 0 || fds[0].Revents&(unix.POLLPRI|unix.POLLERR) == 0 {
			continue
		}
		w.logger.Trace("mount table changed")
		select {
		case events <- struct{}{}:
		default:
		}
	}
}

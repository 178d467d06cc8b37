//go:build linux

package mounts

import (
	"context"
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"
)

type WatcherSuite struct{}

var _ = Suite(&WatcherSuite{})

func (s *WatcherSuite) TestFailsOnMissingMountInfo(c *C) {
	w := NewWatcher()
	w.path = filepath.Join(c.MkDir(), "mountinfo")
	events, err := w.Watch(context.Background())
	c.Check(events, IsNil)
	c.Check(err, ErrorMatches, "could not open .*/mountinfo: .*no such file or directory")
}

func (s *WatcherSuite) TestClosesOnCancel(c *C) {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := NewWatcher().Watch(ctx)
	c.Assert(err, IsNil)
	cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if ok == false {
				return
			}
		case <-timeout:
			c.Fatalf("watcher did not stop after cancellation")
		}
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/formicidae-tracker/housekeeping"
	. "gopkg.in/check.v1"
)

type OptionsSuite struct {
	dir string
}

var _ = Suite(&OptionsSuite{})

func (s *OptionsSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *OptionsSuite) TestConfigPath(c *C) {
	o := &Options{}
	c.Check(o.ConfigPath(), Equals, filepath.Join(xdg.ConfigHome, "fort", "housekeeping", "config.yml"))
	o.Config = "/etc/housekeeping.yml"
	c.Check(o.ConfigPath(), Equals, "/etc/housekeeping.yml")
}

func (s *OptionsSuite) TestLoadConfig(c *C) {
	o := &Options{Config: filepath.Join(s.dir, "config.yml")}
	config, err := o.LoadConfig()
	c.Assert(err, IsNil)
	c.Check(*config, DeepEquals, housekeeping.DefaultConfig)

	c.Assert(os.WriteFile(o.Config, []byte("poll_interval: 5s\n"), 0644), IsNil)
	config, err = o.LoadConfig()
	c.Assert(err, IsNil)
	c.Check(config.PollInterval, Equals, 5*time.Second)

	c.Assert(os.WriteFile(o.Config, []byte("free_percent_critical: 0.5\n"), 0644), IsNil)
	_, err = o.LoadConfig()
	c.Check(err, NotNil)
	c.Check(strings.Contains(err.Error(), "must be lower than free_percent_notify"), Equals, true)
}

func (s *OptionsSuite) TestWatchFile(c *C) {
	path := filepath.Join(s.dir, "config.yml")
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := watchFile(ctx, path)
	c.Assert(err, IsNil)

	c.Assert(os.WriteFile(filepath.Join(s.dir, "other.yml"), []byte("{}"), 0644), IsNil)
	c.Assert(os.WriteFile(path, []byte("debounce: 1s\n"), 0644), IsNil)

	select {
	case _, ok := <-changes:
		c.Check(ok, Equals, true)
	case <-time.After(2 * time.Second):
		c.Fatalf("no change reported")
	}

	cancel()
	for range changes {
	}
}

func (s *OptionsSuite) TestWatchMissingDirectory(c *C) {
	_, err := watchFile(context.Background(), filepath.Join(s.dir, "nowhere", "config.yml"))
	c.Check(err, NotNil)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/housekeeping/pkg/ldsm"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

type RunCommand struct {
	NoReload bool `long:"no-reload" description:"do not reload the configuration file when it changes"`
}

var runCommand = &RunCommand{}

var errUnknownResponse = errors.New("unknown notification response")

const reloadDelay = 500 * time.Millisecond

type daemon struct {
	engine     *ldsm.Engine
	notifier   *desktopNotifier
	configPath string
	config     housekeeping.Config
	logger     *logrus.Entry
}

func (c *RunCommand) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := opts.LoadConfig()
	if err != nil {
		return err
	}

	d := &daemon{
		configPath: opts.ConfigPath(),
		config:     *config,
		logger:     tm.NewLogger("housekeeping"),
	}
	d.notifier = NewDesktopNotifier(func(mountPath, response string) {
		d.respond(ctx, mountPath, response)
	})
	d.engine = ldsm.NewEngine(d.notifier)

	if err := d.engine.Start(ctx, d.config); err != nil {
		return err
	}
	defer func() {
		d.engine.Stop()
		d.notifier.Close()
	}()

	var changes <-chan struct{}
	if c.NoReload == false {
		changes, err = watchFile(ctx, d.configPath)
		if err != nil {
			d.logger.WithError(err).Warn("configuration will not be reloaded")
		}
	}

	return d.loop(ctx, changes)
}

func (d *daemon) loop(ctx context.Context, changes <-chan struct{}) error {
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("terminating")
			return nil
		case _, ok := <-changes:
			if ok == false {
				changes = nil
				continue
			}
			reload = time.After(reloadDelay)
		case <-reload:
			reload = nil
			d.reload(ctx)
		}
	}
}

func (d *daemon) reload(ctx context.Context) {
	config, err := housekeeping.ReadConfig(d.configPath)
	if err == nil {
		err = config.Validate()
	}
	if err != nil {
		d.logger.WithError(err).Error("keeping current configuration")
		return
	}

	d.logger.WithField("path", d.configPath).Info("reloading configuration")
	d.engine.Stop()
	if err := d.engine.Start(ctx, *config); err != nil {
		d.logger.WithError(err).Error("could not restart, using previous configuration")
		if err := d.engine.Start(ctx, d.config); err != nil {
			d.logger.WithError(err).Error("could not restart")
		}
		return
	}
	d.config = *config
}

func (d *daemon) respond(ctx context.Context, mountPath, response string) {
	logger := d.logger.WithFields(logrus.Fields{
		"path":     mountPath,
		"response": response,
	})

	var err error
	switch response {
	case emptyTrashResponse:
		err = d.engine.EmptyTrash(ctx)
	case ignoreResponse:
		err = d.engine.Dismiss(mountPath)
	default:
		err = errUnknownResponse
	}
	if err != nil {
		logger.WithError(err).Warn("could not handle notification response")
	}
}

// watchFile reports changes of path until ctx is done. The parent
// directory is watched, as editors often replace the file.
func watchFile(ctx context.Context, path string) (<-chan struct{}, error) {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	logger := tm.NewLogger("config-watcher")
	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if ok == false {
					return
				}
				if filepath.Clean(event.Name) != path || event.Op == fsnotify.Chmod {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if ok == false {
					return
				}
				logger.WithError(err).Warn("watch error")
			}
		}
	}()

	return changes, nil
}

func init() {
	parser.AddCommand("run",
		"monitors free disk space",
		"Monitors the free space of the mounted filesystems and notifies the user when it gets low. The configuration is reloaded when it changes.",
		runCommand)
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/sirupsen/logrus"
)

// waitDelay bounds the wait for the output of a killed notify-send.
const waitDelay = time.Second

const (
	emptyTrashResponse = "empty-trash"
	ignoreResponse     = "ignore"
)

// desktopNotifier displays notifications through notify-send, and
// reports the button clicked by the user to onResponse. Without a
// notify-send executable, notifications are only logged.
type desktopNotifier struct {
	mx      sync.Mutex
	wg      sync.WaitGroup
	command string
	pending map[string]*pendingNotification

	onResponse func(mountPath, response string)
	logger     *logrus.Entry
}

func NewDesktopNotifier(onResponse func(mountPath, response string)) *desktopNotifier {
	command, err := exec.LookPath("notify-send")
	res := &desktopNotifier{
		command:    command,
		pending:    make(map[string]*pendingNotification),
		onResponse: onResponse,
		logger:     tm.NewLogger("notifier"),
	}
	if err != nil {
		res.logger.WithError(err).Warn("notifications will only be logged")
		res.command = ""
	}
	return res
}

type pendingNotification struct {
	cancel context.CancelFunc
}

func summary(severity housekeeping.Severity) string {
	if severity == housekeeping.Critical {
		return "Critically Low Disk Space"
	}
	return "Low Disk Space"
}

func showArgs(severity housekeeping.Severity, message string) []string {
	urgency := "normal"
	if severity == housekeeping.Critical {
		urgency = "critical"
	}
	return []string{
		"--app-name=housekeeping",
		"--icon=drive-harddisk",
		"--urgency=" + urgency,
		"--wait",
		"--action=" + emptyTrashResponse + "=Empty Trash",
		"--action=" + ignoreResponse + "=Ignore",
		summary(severity),
		message,
	}
}

func (n *desktopNotifier) Show(mountPath string, severity housekeeping.Severity, message string) error {
	if len(n.command) == 0 {
		n.logger.WithFields(logrus.Fields{
			"path":     mountPath,
			"severity": severity,
		}).Warn(message)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, n.command, showArgs(severity, message)...)
	stdout := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("could not run %s: %w", n.command, err)
	}

	p := &pendingNotification{cancel: cancel}
	n.mx.Lock()
	if previous, ok := n.pending[mountPath]; ok == true {
		previous.cancel()
	}
	n.pending[mountPath] = p
	n.wg.Add(1)
	n.mx.Unlock()

	go func() {
		defer n.wg.Done()
		defer cancel()
		err := cmd.Wait()
		if ctx.Err() != nil {
			// withdrawn or replaced, the response is outdated.
			return
		}

		n.mx.Lock()
		if n.pending[mountPath] == p {
			delete(n.pending, mountPath)
		}
		n.mx.Unlock()

		if err != nil {
			n.logger.WithError(err).WithField("path", mountPath).Warn("notification failed")
			return
		}
		response := strings.TrimSpace(stdout.String())
		if len(response) > 0 && n.onResponse != nil {
			n.onResponse(mountPath, response)
		}
	}()
	return nil
}

// Withdraw stops listening to the response of the notification of
// mountPath. notify-send cannot close it.
func (n *desktopNotifier) Withdraw(mountPath string) error {
	n.mx.Lock()
	defer n.mx.Unlock()
	if p, ok := n.pending[mountPath]; ok == true {
		p.cancel()
		delete(n.pending, mountPath)
	}
	return housekeeping.ErrWithdrawUnsupported
}

func (n *desktopNotifier) ReportFailure(action string, err error) {
	n.logger.WithError(err).WithField("action", action).Error("action failed")
	if len(n.command) == 0 {
		return
	}
	out, cerr := exec.Command(n.command,
		"--app-name=housekeeping",
		"--icon=dialog-error",
		"Housekeeping action failed",
		err.Error()).CombinedOutput()
	if cerr != nil {
		n.logger.WithError(cerr).WithField("output", string(out)).Error("could not report failure")
	}
}

// Close forgets all pending notifications and waits for their
// listeners to terminate.
func (n *desktopNotifier) Close() {
	n.mx.Lock()
	for path, p := range n.pending {
		p.cancel()
		delete(n.pending, path)
	}
	n.mx.Unlock()
	n.wg.Wait()
}

package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/atuleu/go-tablifier"
	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/housekeeping/internal/mounts"
	"golang.org/x/exp/constraints"
)

type StatusCommand struct {
	All     bool          `short:"a" long:"all" description:"also list the mounts that are not monitored"`
	Timeout time.Duration `long:"timeout" description:"maximal time to query the mounts" default:"10s"`
}

var statusCommand = &StatusCommand{}

type StatusTableLine struct {
	Status   string `name:" "`
	Mount    string
	Type     string
	Space    string `name:"Space Used"`
	Free     string
	Severity string
}

func (c *StatusCommand) Execute([]string) error {
	config, err := opts.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	records, err := mounts.NewInventory(*config).List(ctx)
	if err != nil {
		return fmt.Errorf("could not list mounts: %w", err)
	}

	printStatus(records, *config, c.All)
	return nil
}

// largest returns the largest of its arguments.
func largest[T constraints.Ordered](first T, others ...T) T {
	res := first
	for _, v := range others {
		if v > res {
			res = v
		}
	}
	return res
}

var binaryUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// formatUsage formats the used and total bytes of a mount, both in
// the binary unit of the largest.
func formatUsage(used, total int64) string {
	scale := 1.0
	unit := binaryUnits[0]
	size := math.Abs(float64(largest(used, total)))
	for _, u := range binaryUnits[1:] {
		if size < 1024*scale {
			break
		}
		scale *= 1024
		unit = u
	}
	return fmt.Sprintf("%.1f / %.1f %s", float64(used)/scale, float64(total)/scale, unit)
}

var severityGlyphs = map[housekeeping.Severity]string{
	housekeeping.Ok:       "✓",
	housekeeping.Low:      "!",
	housekeeping.Critical: "✗",
}

func buildStatusLines(records []housekeeping.MountRecord, config housekeeping.Config, all bool) []StatusTableLine {
	lines := make([]StatusTableLine, 0, len(records))
	for _, r := range records {
		if r.Relevant == false && all == false {
			continue
		}
		line := StatusTableLine{
			Status: "-",
			Mount:  r.Path,
			Type:   r.Kind,
			Space:  formatUsage(largest(0, r.Total-r.Free), r.Total),
			Free:   fmt.Sprintf("%.1f%%", 100.0*r.FreeRatio()),
		}
		if r.Relevant == true {
			severity := housekeeping.Evaluate(r, config)
			line.Status = severityGlyphs[severity]
			line.Severity = severity.String()
		}
		lines = append(lines, line)
	}
	return lines
}

func printStatus(records []housekeeping.MountRecord, config housekeeping.Config, all bool) {
	tablifier.Tablify(buildStatusLines(records, config, all))
}

func init() {
	parser.AddCommand("status",
		"displays the free space of the mounts",
		"Displays the free space of the mounted filesystems, and the severity the monitor would notify for them",
		statusCommand)
}

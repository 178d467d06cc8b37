package main

import (
	"context"

	"github.com/formicidae-tracker/housekeeping/internal/mounts"
	"github.com/formicidae-tracker/housekeeping/internal/trash"
)

type EmptyTrashCommand struct {
	HomeOnly bool `long:"home-only" description:"only empty the trash of the home directory"`
}

var emptyTrashCommand = &EmptyTrashCommand{}

func (c *EmptyTrashCommand) Execute([]string) error {
	ctx := context.Background()
	mountPaths := []string{}
	if c.HomeOnly == false {
		config, err := opts.LoadConfig()
		if err != nil {
			return err
		}
		records, err := mounts.NewInventory(*config).Snapshot(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			mountPaths = append(mountPaths, r.Path)
		}
	}

	return trash.NewEmptier().Empty(ctx, mountPaths)
}

func init() {
	parser.AddCommand("empty-trash",
		"empties the trash",
		"Empties the trash of the home directory and of every monitored mount",
		emptyTrashCommand)
}

package main

import (
	"fmt"
	"os"

	"github.com/formicidae-tracker/housekeeping"
)

type ConfigCommand struct {
	Default bool `long:"default" description:"prints the default configuration instead of the current one"`
	Write   bool `short:"w" long:"write" description:"writes the configuration to the configuration file"`
}

var configCommand = &ConfigCommand{}

func (c *ConfigCommand) config() (*housekeeping.Config, error) {
	if c.Default == true {
		res := housekeeping.DefaultConfig
		return &res, nil
	}
	return opts.LoadConfig()
}

func (c *ConfigCommand) Execute([]string) error {
	config, err := c.config()
	if err != nil {
		return err
	}

	if c.Write == true {
		if err := config.WriteConfig(opts.ConfigPath()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "configuration written to %s\n", opts.ConfigPath())
		return nil
	}

	data, err := config.Yaml()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	parser.AddCommand("config",
		"prints the configuration",
		"Prints the configuration in use, or writes it to the configuration file",
		configCommand)
}

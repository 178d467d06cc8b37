package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/formicidae-tracker/housekeeping"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	OtelEndpoint string `long:"otel-endpoint" description:"Open telemetry endpoint to use" env:"HOUSEKEEPING_OTEL_ENDPOINT"`
	Version      bool   `short:"V" long:"version" description:"Print version and exits"`
	Verbose      []bool `short:"v" long:"verbose" description:"Enable more verbose output (can be set multiple times)"`
	Config       string `short:"c" long:"config" description:"configuration file to use" env:"HOUSEKEEPING_CONFIG"`
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "fort", "housekeeping", "config.yml")
}

func (o *Options) ConfigPath() string {
	if len(o.Config) > 0 {
		return o.Config
	}
	return defaultConfigPath()
}

func (o *Options) LoadConfig() (*housekeeping.Config, error) {
	config, err := housekeeping.ReadConfig(o.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", o.ConfigPath(), err)
	}
	return config, nil
}

var opts = &Options{}

var parser = flags.NewParser(opts, flags.Default)

func setUpLogger(opts *Options) {
	if len(opts.OtelEndpoint) > 0 {
		tm.SetUpTelemetry(tm.OtelProviderArgs{
			CollectorURL:   opts.OtelEndpoint,
			ServiceName:    "housekeeping",
			ServiceVersion: housekeeping.HOUSEKEEPING_VERSION,
			Level:          tm.VerboseLevel(len(opts.Verbose)),
		})
	} else {
		tm.SetUpLocal(tm.VerboseLevel(len(opts.Verbose)))
	}
}

func executeCommand(command flags.Commander, args []string) error {
	if opts.Version == true {
		fmt.Printf("housekeeping %s\n", housekeeping.HOUSEKEEPING_VERSION)
		return nil
	}
	if command == nil {
		return errors.New("missing command, see --help")
	}

	setUpLogger(opts)
	defer tm.Shutdown(context.Background())

	return command.Execute(args)
}

func Execute() error {
	parser.SubcommandsOptional = true
	parser.CommandHandler = executeCommand

	_, err := parser.Parse()
	if err != nil &&
		flags.WroteHelp(err) == true {
		return nil
	}
	return err
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(2)
	}
}

package housekeeping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v2"
)

// Config holds every option recognized by the low disk space
// monitor. Ratios are fractions of the filesystem capacity (0.05 is
// 5%), sizes are in bytes.
type Config struct {
	Version string `yaml:"version,omitempty"`

	FreePercentNotify      float64 `yaml:"free_percent_notify"`
	FreePercentCritical    float64 `yaml:"free_percent_critical"`
	FreePercentNotifyAgain float64 `yaml:"free_percent_notify_again"`
	FreeSizeNoNotify       int64   `yaml:"free_size_no_notify"`

	MinNotifyPeriod time.Duration `yaml:"min_notify_period"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	Debounce        time.Duration `yaml:"debounce"`
	NetworkTimeout  time.Duration `yaml:"network_timeout"`

	MinTotalSize int64 `yaml:"min_total_size"`

	IgnoredMountPaths      []string `yaml:"ignored_mount_paths"`
	IgnoredFilesystemKinds []string `yaml:"ignored_filesystem_kinds"`
}

var DefaultConfig Config

func init() {
	DefaultConfig = Config{
		Version:                CONFIG_FMT_VERSION,
		FreePercentNotify:      0.05,
		FreePercentCritical:    0.02,
		FreePercentNotifyAgain: 0.01,
		FreeSizeNoNotify:       0,
		MinNotifyPeriod:        10 * time.Minute,
		PollInterval:           60 * time.Second,
		Debounce:               2 * time.Second,
		NetworkTimeout:         2 * time.Second,
		MinTotalSize:           100 * 1024 * 1024, // 100 MiB
		IgnoredMountPaths:      []string{},
		IgnoredFilesystemKinds: []string{},
	}
}

// ParseConfig parses a YAML configuration. Missing fields keep their
// DefaultConfig value.
func ParseConfig(data []byte) (*Config, error) {
	res := DefaultConfig
	res.IgnoredMountPaths = append([]string{}, DefaultConfig.IgnoredMountPaths...)
	res.IgnoredFilesystemKinds = append([]string{}, DefaultConfig.IgnoredFilesystemKinds...)

	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("could not parse configuration: %w", err)
	}
	if err := checkFormatVersion(res.Version); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReadConfig reads the configuration file at path. A missing file
// yields the DefaultConfig.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) == true {
			return ParseConfig(nil)
		}
		return nil, fmt.Errorf("could not read configuration %s: %w", path, err)
	}
	return ParseConfig(data)
}

// WriteConfig saves the configuration as YAML in path, creating the
// parent directory if needed.
func (c Config) WriteConfig(path string) error {
	data, err := c.Yaml()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c Config) Yaml() ([]byte, error) {
	return yaml.Marshal(c)
}

func checkFormatVersion(version string) error {
	if len(version) == 0 {
		return nil
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("invalid configuration version '%s': %w", version, err)
	}
	supported := semver.MustParse(CONFIG_FMT_VERSION)
	if v.Major != supported.Major || v.GT(supported) == true {
		return fmt.Errorf("unsupported configuration version %s (supported: %s)", v, supported)
	}
	return nil
}

// Validate checks the configuration for consistency. All problems
// are reported at once.
func (c Config) Validate() error {
	var merr *multierror.Error

	checkRatio := func(name string, v float64) {
		if v <= 0 || v >= 1 {
			merr = multierror.Append(merr, fmt.Errorf("%s must be in ]0;1[, got %g", name, v))
		}
	}

	checkRatio("free_percent_notify", c.FreePercentNotify)
	checkRatio("free_percent_critical", c.FreePercentCritical)
	checkRatio("free_percent_notify_again", c.FreePercentNotifyAgain)

	if c.FreePercentCritical >= c.FreePercentNotify {
		merr = multierror.Append(merr,
			fmt.Errorf("free_percent_critical (%g) must be lower than free_percent_notify (%g)",
				c.FreePercentCritical, c.FreePercentNotify))
	}

	if c.FreeSizeNoNotify < 0 {
		merr = multierror.Append(merr, fmt.Errorf("free_size_no_notify must be positive, got %d", c.FreeSizeNoNotify))
	}
	if c.MinTotalSize < 0 {
		merr = multierror.Append(merr, fmt.Errorf("min_total_size must be positive, got %d", c.MinTotalSize))
	}
	if c.MinNotifyPeriod < 0 {
		merr = multierror.Append(merr, fmt.Errorf("min_notify_period must be positive, got %s", c.MinNotifyPeriod))
	}
	if c.PollInterval <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("poll_interval must be strictly positive, got %s", c.PollInterval))
	}
	if c.Debounce < 0 {
		merr = multierror.Append(merr, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	if c.NetworkTimeout <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("network_timeout must be strictly positive, got %s", c.NetworkTimeout))
	}

	for _, p := range c.IgnoredMountPaths {
		if strings.HasPrefix(p, "/") == false {
			merr = multierror.Append(merr, fmt.Errorf("ignored mount path '%s' is not absolute", p))
		}
	}

	return merr.ErrorOrNil()
}

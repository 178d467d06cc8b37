package housekeeping

import "fmt"

// Severity classifies how urgently a mount lacks free space. Values
// are ordered: Ok < Low < Critical.
type Severity int

const (
	Ok Severity = iota
	Low
	Critical
)

var severityNames = map[Severity]string{
	Ok:       "ok",
	Low:      "low",
	Critical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok == true {
		return name
	}
	return fmt.Sprintf("<unknown severity %d>", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; ok == false {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	for v, name := range severityNames {
		if name == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown severity '%s'", string(text))
}

// A MountRecord describes a monitored filesystem as seen during one
// poll pass. Path is its identity.
type MountRecord struct {
	Path     string
	Device   string
	Kind     string
	Total    int64
	Free     int64
	Relevant bool
}

// FreeRatio returns the fraction of the capacity still available. A
// record without capacity is reported as fully free.
func (r MountRecord) FreeRatio() float64 {
	if r.Total <= 0 {
		return 1.0
	}
	return float64(r.Free) / float64(r.Total)
}

// Evaluate computes the Severity of a record for the given
// thresholds. It is a pure function of its arguments, and monotonic
// in the record free space.
func Evaluate(record MountRecord, config Config) Severity {
	if record.Total <= 0 {
		return Ok
	}

	if config.FreeSizeNoNotify > 0 && record.Free > config.FreeSizeNoNotify {
		return Ok
	}

	ratio := record.FreeRatio()
	if ratio > config.FreePercentNotify {
		return Ok
	}
	if ratio > config.FreePercentCritical {
		return Low
	}
	return Critical
}

package housekeeping

import (
	"math/rand"

	. "gopkg.in/check.v1"
)

type SeveritySuite struct{}

var _ = Suite(&SeveritySuite{})

const GB int64 = 1000 * 1000 * 1000

func (s *SeveritySuite) TestOrdering(c *C) {
	c.Check(Ok < Low, Equals, true)
	c.Check(Low < Critical, Equals, true)
}

func (s *SeveritySuite) TestStrings(c *C) {
	testdata := []struct {
		Severity Severity
		Expected string
	}{
		{Ok, "ok"},
		{Low, "low"},
		{Critical, "critical"},
		{Severity(42), "<unknown severity 42>"},
	}
	for _, d := range testdata {
		c.Check(d.Severity.String(), Equals, d.Expected)
	}
}

func (s *SeveritySuite) TestTextMarshaling(c *C) {
	var sev Severity
	c.Check(sev.UnmarshalText([]byte("critical")), IsNil)
	c.Check(sev, Equals, Critical)
	c.Check(sev.UnmarshalText([]byte("foo")), ErrorMatches, "unknown severity 'foo'")

	_, err := Severity(-1).MarshalText()
	c.Check(err, ErrorMatches, "invalid severity -1")
}

func (s *SeveritySuite) TestHomeScenario(c *C) {
	config := DefaultConfig
	testdata := []struct {
		Free     int64
		Expected Severity
	}{
		{6 * GB, Ok},
		{4 * GB, Low},
		{3 * GB / 2, Critical},
		{0, Critical},
	}

	for _, d := range testdata {
		record := MountRecord{Path: "/home", Total: 100 * GB, Free: d.Free}
		c.Check(Evaluate(record, config), Equals, d.Expected,
			Commentf("free: %d", d.Free))
	}
}

func (s *SeveritySuite) TestBoundaries(c *C) {
	config := DefaultConfig
	c.Check(Evaluate(MountRecord{Total: 100, Free: 5}, config), Equals, Low)
	c.Check(Evaluate(MountRecord{Total: 100, Free: 2}, config), Equals, Critical)
	c.Check(Evaluate(MountRecord{Total: 0, Free: 0}, config), Equals, Ok)
}

func (s *SeveritySuite) TestAbsoluteFreeSizeDisablesWarnings(c *C) {
	config := DefaultConfig
	config.FreeSizeNoNotify = 10 * GB
	record := MountRecord{Path: "/data", Total: 1000 * GB, Free: 20 * GB}
	c.Check(Evaluate(record, config), Equals, Ok)
	record.Free = 9 * GB
	c.Check(Evaluate(record, config), Equals, Critical)
}

func (s *SeveritySuite) TestEvaluateIsMonotonic(c *C) {
	r := rand.New(rand.NewSource(42))
	configs := []Config{DefaultConfig, DefaultConfig}
	configs[1].FreeSizeNoNotify = 3 * GB

	for _, config := range configs {
		for i := 0; i < 1000; i++ {
			total := r.Int63n(200*GB) + 1
			free := r.Int63n(total + 1)
			record := MountRecord{Total: total, Free: free}
			previous := Evaluate(record, config)
			for record.Free > 0 {
				record.Free -= r.Int63n(record.Free) + 1
				current := Evaluate(record, config)
				c.Assert(current >= previous, Equals, true,
					Commentf("total: %d free: %d severity went from %s to %s", total, record.Free, previous, current))
				previous = current
			}
		}
	}
}

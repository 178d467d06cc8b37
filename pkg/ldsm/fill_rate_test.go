package ldsm

import (
	"math"
	"time"

	. "gopkg.in/check.v1"
)

type FillRateSuite struct{}

var _ = Suite(&FillRateSuite{})

func (s *FillRateSuite) TestEstimation(c *C) {
	e := newFillRateEstimator(10*1024*1024, time.Unix(0, 0))
	c.Check(e.Estimate(10*1024*1024, time.Unix(0, 0)), Equals, int64(0))

	testdata := []struct {
		Free     int64
		Time     time.Time
		Expected int64
	}{
		{Free: 10*1024*1024 - 100, Time: time.Unix(1, 0), Expected: 100},
		{Free: 10*1024*1024 - 150, Time: time.Unix(2, 0), Expected: 80},
		{Free: 10*1024*1024 - 200, Time: time.Unix(3, 0), Expected: 69},
		{Free: 10*1024*1024 - 250, Time: time.Unix(4, 0), Expected: 63},
		{Free: 10*1024*1024 - 300, Time: time.Unix(5, 0), Expected: 60},
		{Free: 10*1024*1024 - 350, Time: time.Unix(6, 0), Expected: 58},
		{Free: 10*1024*1024 - 400, Time: time.Unix(7, 0), Expected: 57},
		{Free: 10*1024*1024 - 450, Time: time.Unix(8, 0), Expected: 56},
		// the user emptied the trash
		{Free: 100 * 1024 * 1024, Time: time.Unix(9, 0), Expected: 56},
		// the estimation restarts from here
		{Free: 100*1024*1024 - 50, Time: time.Unix(10, 0), Expected: 50},
		{Free: 100*1024*1024 - 100, Time: time.Unix(11, 0), Expected: 50},
		{Free: 100*1024*1024 - 150, Time: time.Unix(12, 0), Expected: 50},
		{Free: 100*1024*1024 - 200, Time: time.Unix(13, 0), Expected: 50},
	}

	for _, d := range testdata {
		c.Check(e.Estimate(d.Free, d.Time), Equals, d.Expected)
	}
}

func (s *FillRateSuite) TestTimeToFull(c *C) {
	testdata := []struct {
		Free, Rate int64
		ETA        time.Duration
		OK         bool
	}{
		{Free: 1000, Rate: 0},
		{Free: 1000, Rate: -100},
		{Free: 1000, Rate: minFillRate - 1},
		{Free: 1000 * 1000, Rate: 1000, ETA: 1000 * time.Second, OK: true},
		{Free: 0, Rate: 1000},
		{Free: 7 * 24 * 3600 * 1000, Rate: 1000, ETA: maxForecast, OK: true},
		{Free: 7*24*3600*1000 + 1000, Rate: 1000},
		// would overflow a time.Duration
		{Free: 1 << 40, Rate: 100},
		{Free: math.MaxInt64, Rate: minFillRate},
	}
	for _, d := range testdata {
		eta, ok := timeToFull(d.Free, d.Rate)
		c.Check(ok, Equals, d.OK, Commentf("free: %d rate: %d", d.Free, d.Rate))
		c.Check(eta, Equals, d.ETA)
	}
}

package ldsm

import (
	"math"
	"time"
)

// minFillRate is the write speed below which no forecast is made.
const minFillRate = 100 // bytes per second

// maxForecast bounds the forecasts worth telling the user.
const maxForecast = 7 * 24 * time.Hour

// maxFillRateJump is the relative change of write speed above which
// the space consumption on a mount is considered to have changed
// pattern, e.g. after a trash was emptied or a large download ended.
const maxFillRateJump = 0.5

// fillRateSmoothing weights a new measurement in the smoothed rate.
const fillRateSmoothing = 0.8

// fillRateEstimator follows how fast free space shrinks on a single
// mount across evaluations.
type fillRateEstimator struct {
	// reference is the free space at since, the start of the current
	// consumption pattern.
	reference int64
	since     time.Time
	smoothed  float64
}

func newFillRateEstimator(freeBytes int64, t time.Time) *fillRateEstimator {
	return &fillRateEstimator{
		reference: freeBytes,
		since:     t,
		smoothed:  math.NaN(),
	}
}

func (e *fillRateEstimator) restart(freeBytes int64, t time.Time) {
	e.reference = freeBytes
	e.since = t
	e.smoothed = math.NaN()
}

// Estimate updates the estimator with the free space observed at t,
// and returns the rate at which the mount fills up, in bytes per
// second. It is negative when space is being freed. A sudden change
// of rate restarts the estimation from t, and the previous rate is
// reported one last time.
func (e *fillRateEstimator) Estimate(freeBytes int64, t time.Time) int64 {
	elapsed := t.Sub(e.since).Seconds()
	if elapsed <= 0 {
		if math.IsNaN(e.smoothed) == true {
			return 0
		}
		return int64(e.smoothed)
	}

	consumed := float64(e.reference - freeBytes)
	rate := consumed / elapsed

	switch {
	case math.IsNaN(e.smoothed):
		e.smoothed = rate
	case math.Abs((rate-e.smoothed)/e.smoothed) > maxFillRateJump:
		previous := e.smoothed
		e.restart(freeBytes, t)
		return int64(previous)
	default:
		e.smoothed += fillRateSmoothing * (rate - e.smoothed)
	}
	return int64(e.smoothed)
}

// timeToFull returns when a mount with freeBytes left will be full at
// the given write speed. ok is false when no meaningful forecast can
// be made.
func timeToFull(freeBytes, bytesPerSecond int64) (eta time.Duration, ok bool) {
	if bytesPerSecond < minFillRate {
		return 0, false
	}
	seconds := float64(freeBytes) / float64(bytesPerSecond)
	// compared in seconds, as a Duration overflows after ~292 years.
	if seconds <= 0 || seconds > maxForecast.Seconds() {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

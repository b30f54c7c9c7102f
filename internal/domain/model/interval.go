// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// SeriesKey identifies one demand series.
type SeriesKey struct {
	Channel string
	Queue   string
}

func (k SeriesKey) String() string {
	return k.Channel + "/" + k.Queue
}

// Less orders keys by channel then queue.
func (k SeriesKey) Less(o SeriesKey) bool {
	if k.Channel != o.Channel {
		return k.Channel < o.Channel
	}
	return k.Queue < o.Queue
}

// IntervalRecord is one historical interval for a channel/queue.
// Identity is (Timestamp, IntervalMinutes, Channel, Queue).
type IntervalRecord struct {
	Timestamp       time.Time
	IntervalMinutes int
	Channel         string
	Queue           string

	Offered         int
	Handled         int
	Abandoned       int
	AHTSeconds      float64
	ASASeconds      float64
	ServiceLevel    float64
	AgentsScheduled int
	AgentsAvailable int
	ShrinkageRate   float64
	CostPerHour     float64
}

// Key returns the series this record belongs to.
func (r IntervalRecord) Key() SeriesKey {
	return SeriesKey{Channel: r.Channel, Queue: r.Queue}
}

// ID renders the full identity tuple, used in issue reports.
func (r IntervalRecord) ID() string {
	return fmt.Sprintf("%s/%s@%s/%dm", r.Channel, r.Queue, r.Timestamp.Format(time.RFC3339), r.IntervalMinutes)
}

// IntervalSeconds returns the interval length in seconds.
func (r IntervalRecord) IntervalSeconds() int {
	return r.IntervalMinutes * 60
}

// AllowedIntervalMinutes are the granularities a run may use.
var AllowedIntervalMinutes = []int{15, 30, 60, 480, 720, 1440}

// IsAllowedInterval reports whether minutes is a supported run granularity.
func IsAllowedInterval(minutes int) bool {
	for _, m := range AllowedIntervalMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}

package series

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

// BucketStart truncates t to the start of its run interval, measured from
// local midnight so 480 and 720 minute buckets align to the day.
func BucketStart(t time.Time, minutes int) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if minutes >= 1440 {
		return midnight
	}
	offset := (t.Hour()*60 + t.Minute()) / minutes * minutes
	return midnight.Add(time.Duration(offset) * time.Minute)
}

type bucket struct {
	start time.Time
	recs  []model.IntervalRecord
}

// Aggregate rolls time-ordered records of one series up to runMinutes.
// Counts are summed, AHT and ASA are weighted by handled contacts, service
// level by offered contacts, the rest averaged. Buckets not fully covered by
// history (only possible at either end of a gap-free series) are dropped.
func Aggregate(recs []model.IntervalRecord, runMinutes int) ([]model.IntervalRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	base := recs[0].IntervalMinutes
	if base == runMinutes {
		out := make([]model.IntervalRecord, len(recs))
		copy(out, recs)
		return out, nil
	}
	if base > runMinutes || runMinutes%base != 0 {
		return nil, fmt.Errorf("%w: %dm into %dm", ErrIncompatibleInterval, base, runMinutes)
	}
	perBucket := runMinutes / base

	var buckets []bucket
	for _, r := range recs {
		start := BucketStart(r.Timestamp, runMinutes)
		if n := len(buckets); n > 0 && buckets[n-1].start.Equal(start) {
			buckets[n-1].recs = append(buckets[n-1].recs, r)
			continue
		}
		buckets = append(buckets, bucket{start: start, recs: []model.IntervalRecord{r}})
	}

	out := make([]model.IntervalRecord, 0, len(buckets))
	for _, b := range buckets {
		if len(b.recs) != perBucket {
			continue
		}
		out = append(out, merge(b.start, runMinutes, b.recs))
	}
	return out, nil
}

func merge(start time.Time, minutes int, recs []model.IntervalRecord) model.IntervalRecord {
	first := recs[0]
	out := model.IntervalRecord{
		Timestamp:       start,
		IntervalMinutes: minutes,
		Channel:         first.Channel,
		Queue:           first.Queue,
	}
	var (
		aht, asa, sl         weighted
		scheduled, available float64
		shrink, cost         float64
	)
	for _, r := range recs {
		out.Offered += r.Offered
		out.Handled += r.Handled
		out.Abandoned += r.Abandoned
		aht.add(r.AHTSeconds, float64(r.Handled))
		asa.add(r.ASASeconds, float64(r.Handled))
		sl.add(r.ServiceLevel, float64(r.Offered))
		scheduled += float64(r.AgentsScheduled)
		available += float64(r.AgentsAvailable)
		shrink += r.ShrinkageRate
		cost += r.CostPerHour
	}
	n := float64(len(recs))
	out.AHTSeconds = aht.mean()
	out.ASASeconds = asa.mean()
	out.ServiceLevel = sl.mean()
	out.AgentsScheduled = int(math.Round(scheduled / n))
	out.AgentsAvailable = int(math.Round(available / n))
	out.ShrinkageRate = shrink / n
	out.CostPerHour = cost / n
	return out
}

// weighted is a weighted mean that falls back to the plain mean when every
// weight is zero.
type weighted struct {
	sum, weight, plain float64
	n                  int
}

func (w *weighted) add(v, weight float64) {
	w.sum += v * weight
	w.weight += weight
	w.plain += v
	w.n++
}

func (w *weighted) mean() float64 {
	if w.weight > 0 {
		return w.sum / w.weight
	}
	if w.n == 0 {
		return 0
	}
	return w.plain / float64(w.n)
}

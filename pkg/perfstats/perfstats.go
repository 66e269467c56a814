package perfstats

import (
	"sort"
	"sync"
	"time"
)

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// Summary of one named timer
type Summary struct {
	Name    string        `json:"name"`
	Samples int64         `json:"samples"`
	Total   time.Duration `json:"total"`
	Average time.Duration `json:"average"`
}

// Recorder is a thread-safe set of named TimeAccumulators
type Recorder struct {
	lock   sync.Mutex
	timers map[string]*TimeAccumulator
}

func (r *Recorder) Add(name string, v time.Duration) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.timers == nil {
		r.timers = map[string]*TimeAccumulator{}
	}
	a := r.timers[name]
	if a == nil {
		a = &TimeAccumulator{}
		r.timers[name] = a
	}
	a.AddSample(v)
}

// Summaries returns all timers, sorted by name
func (r *Recorder) Summaries() []Summary {
	r.lock.Lock()
	defer r.lock.Unlock()
	all := make([]Summary, 0, len(r.timers))
	for name, a := range r.timers {
		all = append(all, Summary{
			Name:    name,
			Samples: a.Samples,
			Total:   a.Total,
			Average: a.Average(),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.timers = nil
}

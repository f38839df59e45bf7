// Package metrics counts what a merge run did.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Run counters
const (
	EntriesScanned      = "entries_scanned"
	EntriesIgnored      = "entries_ignored"
	ConversationsMerged = "conversations_merged"
	GroupConversations  = "group_conversations"
	MediaCopied         = "media_copied"
	MessagesExported    = "messages_exported"
)

// Metric is a counter value
type Metric struct {
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// TimerMetric accumulates durations
type TimerMetric struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum_ms"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
}

// Average returns the mean duration in milliseconds
func (t TimerMetric) Average() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Sum / float64(t.Count)
}

// Registry holds the metrics of one run
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	startTime time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter metric
func (r *Registry) IncrementCounter(name string, labels map[string]string) {
	r.AddToCounter(name, 1, labels)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	if counter, exists := r.counters[key]; exists {
		counter.Value += value
		return
	}
	r.counters[key] = &Metric{
		Name:   name,
		Value:  value,
		Labels: copyLabels(labels),
	}
}

// Counter returns the value of a counter, summed over all label sets
func (r *Registry) Counter(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, counter := range r.counters {
		if counter.Name == name {
			total += counter.Value
		}
	}
	return total
}

// RecordTimer records a timing measurement
func (r *Registry) RecordTimer(name string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := float64(duration.Nanoseconds()) / 1e6
	timer, exists := r.timers[name]
	if !exists {
		r.timers[name] = &TimerMetric{Count: 1, Sum: ms, Min: ms, Max: ms}
		return
	}
	timer.Count++
	timer.Sum += ms
	timer.Min = min(timer.Min, ms)
	timer.Max = max(timer.Max, ms)
}

// Timer returns a copy of a timer
func (r *Registry) Timer(name string) (TimerMetric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	timer, ok := r.timers[name]
	if !ok {
		return TimerMetric{}, false
	}
	return *timer, true
}

// Fields flattens the registry into log fields
func (r *Registry) Fields() logrus.Fields {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields := logrus.Fields{
		"duration_ms": time.Since(r.startTime).Milliseconds(),
	}
	for key, counter := range r.counters {
		fields[key] = counter.Value
	}
	for name, timer := range r.timers {
		fields[name+"_avg_ms"] = timer.Average()
	}
	return fields
}

// metricKey is deterministic regardless of label iteration order
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("_")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(labels[k])
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}

	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	transitions  map[string]int64
	deliveries   map[string]int64
	sweeps       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		transitions:  make(map[string]int64),
		deliveries:   make(map[string]int64),
		sweeps:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a lifecycle transition attempt by outcome
// ("ok", "invalid", "conflict", "error").
func (m *Metrics) RecordTransition(transition, outcome string) {
	m.inc(func() map[string]int64 { return m.transitions }, transition+"|"+outcome)
}

// RecordDelivery counts a transcript or notification delivery by destination.
func (m *Metrics) RecordDelivery(destination string, ok bool) {
	m.inc(func() map[string]int64 { return m.deliveries }, destination+"|"+strconv.FormatBool(ok))
}

// RecordSweep counts channels handled by the deletion sweep.
func (m *Metrics) RecordSweep(outcome string) {
	m.inc(func() map[string]int64 { return m.sweeps }, outcome)
}

// Snapshot returns a copy of every counter keyed by family.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]map[string]int64{
		"requests":    copyCounts(m.requestCount),
		"errors":      copyCounts(m.errorCount),
		"transitions": copyCounts(m.transitions),
		"deliveries":  copyCounts(m.deliveries),
		"sweeps":      copyCounts(m.sweeps),
	}
}

func (m *Metrics) inc(family func() map[string]int64, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	family()[key]++
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

package benchmark

import (
	"slices"
	"time"
)

// Sample is the outcome of one executor invocation.
type Sample struct {
	Key      string
	Duration time.Duration
	Bytes    int64
	Sum      uint64 // xxhash64 of the bytes written or read
}

// PhaseResult aggregates the samples of one phase. Samples[i] belongs to the
// i-th dispatched operation; Total spans the whole dispatch.
type PhaseResult struct {
	Op      string
	Samples []Sample
	Total   time.Duration
	Bytes   int64
}

// Count is the number of completed operations.
func (p *PhaseResult) Count() int { return len(p.Samples) }

// Mean returns the average per-operation duration.
func (p *PhaseResult) Mean() time.Duration {
	if len(p.Samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range p.Samples {
		sum += s.Duration
	}
	return sum / time.Duration(len(p.Samples))
}

// Sum returns the sum of per-operation durations.
func (p *PhaseResult) Sum() time.Duration {
	var sum time.Duration
	for _, s := range p.Samples {
		sum += s.Duration
	}
	return sum
}

// Throughput returns bytes per second over the phase's wall-clock span.
func (p *PhaseResult) Throughput() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Bytes) / p.Total.Seconds()
}

// Keys returns the sample keys in dispatch order.
func (p *PhaseResult) Keys() []string {
	keys := make([]string, len(p.Samples))
	for i, s := range p.Samples {
		keys[i] = s.Key
	}
	return keys
}

// LatencyStats summarizes per-operation durations.
type LatencyStats struct {
	Min, Max      time.Duration
	P50, P90, P99 time.Duration
}

// Stats computes latency percentiles over the phase's samples.
func (p *PhaseResult) Stats() LatencyStats {
	n := len(p.Samples)
	if n == 0 {
		return LatencyStats{}
	}
	d := make([]time.Duration, n)
	for i, s := range p.Samples {
		d[i] = s.Duration
	}
	slices.Sort(d)
	at := func(q float64) time.Duration { return d[min(int(q*float64(n)), n-1)] }
	return LatencyStats{
		Min: d[0],
		Max: d[n-1],
		P50: at(0.5),
		P90: at(0.9),
		P99: at(0.99),
	}
}

package engine

import "github.com/armon/go-metrics"

// Instrumentation is intentionally minimal: a handful of counters and one
// gauge, emitted through the process-wide go-metrics sink. Nothing here
// blocks, and nothing requires a caller to configure a sink — go-metrics
// falls back to a no-op global instance until metrics.NewGlobal is called,
// so an embedding application that never sets one up still runs correctly.

func incrSets()      { metrics.IncrCounter([]string{"kvs", "sets"}, 1) }
func incrGets()      { metrics.IncrCounter([]string{"kvs", "gets"}, 1) }
func incrRemoves()   { metrics.IncrCounter([]string{"kvs", "removes"}, 1) }
func incrCompactions() {
	metrics.IncrCounter([]string{"kvs", "compactions"}, 1)
}

func setLiveBytesGauge(bytes int64) {
	metrics.SetGauge([]string{"kvs", "live_bytes"}, float32(bytes))
}

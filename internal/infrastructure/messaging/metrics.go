package messaging

import "expvar"

// Counters are exported under "events" at /debug/vars.
var metrics = expvar.NewMap("events")

const (
	metricPublished     = "published"
	metricPublishFailed = "publish_failed"
	metricConsumed      = "consumed"
	metricAcked         = "acked"
	metricRetried       = "retried"
	metricDropped       = "dropped"
	metricParked        = "parked"
	metricDuplicates    = "duplicates"
	metricUnknown       = "unknown_type"
	metricMalformed     = "malformed"
)

func count(name string) { metrics.Add(name, 1) }

func metricValue(name string) int64 {
	v, ok := metrics.Get(name).(*expvar.Int)
	if !ok {
		return 0
	}
	return v.Value()
}

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Source provides snapshots to a Collector.
type Source interface {
	Snapshot() FrameStats
}

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(FrameStats) float64
}

// Collector exports FrameStats snapshots as Prometheus metrics. Each scrape
// takes one snapshot, so the values it reports are from the same frame.
type Collector struct {
	src     Source
	metrics []metric
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading from src. Register it with a
// prometheus.Registerer.
func NewCollector(namespace string, src Source) *Collector {
	gauge := func(name, help string, f func(FrameStats) float64) metric {
		return metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "renderer", name), help, nil, nil),
			kind:  prometheus.GaugeValue,
			value: f,
		}
	}
	counter := func(name, help string, f func(FrameStats) float64) metric {
		m := gauge(name, help, f)
		m.kind = prometheus.CounterValue
		return m
	}

	return &Collector{
		src: src,
		metrics: []metric{
			gauge("draw_time_ms", "Batch build and draw issuance time of the last frame.",
				func(s FrameStats) float64 { return s.DrawTimeMs }),
			gauge("draw_time_mean_ms", "Mean draw time over the last 100 frames.",
				func(s FrameStats) float64 { return s.MeanDrawTimeMs }),
			gauge("frame_time_ms", "Time from frame begin to end of rendering for the last frame.",
				func(s FrameStats) float64 { return s.FrameTimeMs }),
			gauge("sync_wait_seconds", "Fence wait time of the last frame.",
				func(s FrameStats) float64 { return float64(s.SyncWaitNs) / 1e9 }),
			gauge("sync_wait_max_seconds", "Longest fence wait observed.",
				func(s FrameStats) float64 { return float64(s.MaxSyncWaitNs) / 1e9 }),
			gauge("sync_timeout_seconds", "Configured fence wait timeout.",
				func(s FrameStats) float64 { return s.SyncTimeout.Seconds() }),
			gauge("vertices", "Vertices copied in the last frame.",
				func(s FrameStats) float64 { return float64(s.VertexCount) }),
			gauge("vertices_max", "Most vertices copied in one frame.",
				func(s FrameStats) float64 { return float64(s.MaxVertexCount) }),
			gauge("vertex_capacity", "Vertex capacity of each geometry slot.",
				func(s FrameStats) float64 { return float64(s.VertexCapacity) }),
			gauge("indices", "Indices copied in the last frame.",
				func(s FrameStats) float64 { return float64(s.IndexCount) }),
			gauge("indices_max", "Most indices copied in one frame.",
				func(s FrameStats) float64 { return float64(s.MaxIndexCount) }),
			gauge("index_capacity", "Index capacity of each geometry slot.",
				func(s FrameStats) float64 { return float64(s.IndexCapacity) }),
			gauge("draw_calls", "Draw calls issued in the last frame.",
				func(s FrameStats) float64 { return float64(s.DrawCalls) }),
			gauge("culled_batches", "Batches culled in the last frame.",
				func(s FrameStats) float64 { return float64(s.CulledBatches) }),
			counter("frames_total", "Frames rendered.",
				func(s FrameStats) float64 { return float64(s.Frames) }),
			counter("sync_timeouts_total", "Fence waits that timed out.",
				func(s FrameStats) float64 { return float64(s.SyncTimeouts) }),
			counter("overflows_total", "Frames dropped for exceeding slot capacity.",
				func(s FrameStats) float64 { return float64(s.Overflows) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s))
	}
}

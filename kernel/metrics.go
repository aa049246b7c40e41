package kernel

import (
	"github.com/eric29200/nulix/mm/phys"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsCollector exposes kernel-wide counters through the standard
// prometheus.Collector interface: run-queue length, free/total page
// frames per zone, and TCP segments handled — the /proc/meminfo-
// equivalent collector named in this runtime's dependency inventory.
// Every value is computed on Collect rather than cached, the same
// "nothing here is stored" posture fs/procfs's Reader functions take.
type metricsCollector struct {
	k *Kernel

	runQueueLen *prometheus.Desc
	pagesFree   *prometheus.Desc
	pagesTotal  *prometheus.Desc
	tcpSegments *prometheus.Desc
}

func newMetricsCollector(k *Kernel) *metricsCollector {
	return &metricsCollector{
		k:           k,
		runQueueLen: prometheus.NewDesc("nulix_run_queue_length", "Number of runnable tasks", nil, nil),
		pagesFree:   prometheus.NewDesc("nulix_pages_free", "Free physical page frames", []string{"zone"}, nil),
		pagesTotal:  prometheus.NewDesc("nulix_pages_total", "Total physical page frames", []string{"zone"}, nil),
		tcpSegments: prometheus.NewDesc("nulix_tcp_segments_total", "TCP segments handled since boot", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runQueueLen
	ch <- c.pagesFree
	ch <- c.pagesTotal
	ch <- c.tcpSegments
}

// Collect implements prometheus.Collector.
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.runQueueLen, prometheus.GaugeValue, float64(c.k.Sched.RunQueueLen()))

	for name, zone := range map[string]phys.Zone{"normal": phys.ZoneNormal, "high": phys.ZoneHigh} {
		ch <- prometheus.MustNewConstMetric(c.pagesFree, prometheus.GaugeValue, float64(c.k.Phys.FreeFrames(zone)), name)
		ch <- prometheus.MustNewConstMetric(c.pagesTotal, prometheus.GaugeValue, float64(c.k.Phys.TotalFrames(zone)), name)
	}

	if c.k.TCP != nil {
		ch <- prometheus.MustNewConstMetric(c.tcpSegments, prometheus.CounterValue, float64(c.k.TCP.SegmentCount()))
	}
}

// RegisterMetrics registers k's Collector with reg; cmd/kmain calls it
// once after Boot succeeds, when every subsystem it reads from exists.
func (k *Kernel) RegisterMetrics(reg *prometheus.Registry) error {
	return reg.Register(newMetricsCollector(k))
}

package metrics

import (
	"time"

	"sdc-indexer/internal/logging"
)

// StatsProvider is implemented by the catalog.
type StatsProvider interface {
	GetStats() Stats
}

// Stats is a snapshot of the catalog. Row counts are split by table the
// way CatalogRows labels them.
type Stats struct {
	ScienceFiles    int
	L0Files         int
	AncillaryFiles  int
	StatusRecords   int
	OrbitPerigees   int
	OpenConnections int
	// NewestModTime is the latest mod_date across science and L0 rows, zero
	// for an empty catalog.
	NewestModTime time.Time
}

// CatalogTables are the CatalogRows label values in Stats order.
var CatalogTables = []string{"science_files", "l0_files", "ancillary_files", "status", "orbit_perigees"}

func (s Stats) rows() []int {
	return []int{s.ScienceFiles, s.L0Files, s.AncillaryFiles, s.StatusRecords, s.OrbitPerigees}
}

// Collector polls a StatsProvider on an interval and publishes the catalog
// gauges. Counting rows is a table scan on SQLite, so keep the interval in
// the tens of seconds.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewCollector creates a collector. A nil provider makes it a no-op.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once and then on every tick until Stop.
func (c *Collector) Start() {
	go func() {
		defer close(c.done)
		if c.provider == nil {
			<-c.stop
			return
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			Publish(c.provider.GetStats())
			select {
			case <-ticker.C:
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stop)
	<-c.done
}

// Publish sets the catalog gauges from s.
func Publish(s Stats) {
	for i, n := range s.rows() {
		CatalogRows.WithLabelValues(CatalogTables[i]).Set(float64(n))
	}
	DBConnectionsOpen.Set(float64(s.OpenConnections))
	if !s.NewestModTime.IsZero() {
		CatalogNewestFile.Set(float64(s.NewestModTime.Unix()))
	}

	logging.For("collector").Debug("science=%d l0=%d ancillary=%d status=%d orbits=%d connections=%d",
		s.ScienceFiles, s.L0Files, s.AncillaryFiles, s.StatusRecords, s.OrbitPerigees, s.OpenConnections)
}

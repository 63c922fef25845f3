package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the counters of one ingestion run. The importer is a
// batch job, so the registry is written to a node_exporter textfile at the
// end of the run instead of being scraped.
type Metrics struct {
	Registry *prometheus.Registry

	FilesFetched   prometheus.Counter
	LinesRead      prometheus.Counter
	EventsParsed   prometheus.Counter
	EventsInserted prometheus.Counter
	Duplicates     prometheus.Counter
	LastSuccess    prometheus.Gauge
	RunDuration    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accesslog_etl_files_total",
			Help: "Log files staged for import",
		}),
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accesslog_etl_lines_total",
			Help: "Raw lines read from staged files",
		}),
		EventsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accesslog_etl_events_parsed_total",
			Help: "Lines parsed into access events",
		}),
		EventsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accesslog_etl_events_inserted_total",
			Help: "Events newly stored",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accesslog_etl_duplicates_total",
			Help: "Parsed events already present in the store",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accesslog_etl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accesslog_etl_run_duration_seconds",
			Help: "Wall clock duration of the last run",
		}),
	}

	m.Registry.MustRegister(
		m.FilesFetched,
		m.LinesRead,
		m.EventsParsed,
		m.EventsInserted,
		m.Duplicates,
		m.LastSuccess,
		m.RunDuration,
	)
	return m
}

// WriteTextfile writes the registry in text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

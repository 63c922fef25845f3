package etl

import (
	"accesslog-etl/internal/audit"
	"accesslog-etl/internal/ingest"
	"accesslog-etl/internal/metrics"
	"accesslog-etl/internal/parser"
	"accesslog-etl/internal/types"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Fetcher produces the local files of one run
type Fetcher interface {
	Fetch(ctx context.Context) ([]string, error)
}

// EventStore is the write side of store.Store
type EventStore interface {
	Initialize(forceReload bool) error
	InsertBatch(events []types.AccessEvent) (int, error)
}

// FileReport is the outcome of importing one file
type FileReport struct {
	Path     string
	Lines    int
	Parsed   int
	Inserted int
	Skipped  int // parsed events that were already stored
}

// Summary is the outcome of a run
type Summary struct {
	RunID    string
	Files    []FileReport
	Parsed   int
	Inserted int
}

// Skipped is the number of duplicates across the run
func (s *Summary) Skipped() int {
	return s.Parsed - s.Inserted
}

// Pipeline drives fetch, parse and insert for one run. Only one pipeline may
// write to a given store at a time.
type Pipeline struct {
	fetcher Fetcher
	store   EventStore
	parser  parser.Parser
	metrics *metrics.Metrics
	audit   *audit.Logger

	mode        types.Mode
	forceReload bool
}

func NewPipeline(cfg *types.Config, fetcher Fetcher, store EventStore, p parser.Parser, m *metrics.Metrics, a *audit.Logger) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{
		fetcher:     fetcher,
		store:       store,
		parser:      p,
		metrics:     m,
		audit:       a,
		mode:        cfg.Import.Mode,
		forceReload: cfg.Import.ForceReload,
	}
}

// Run fetches the remote files and imports them. The first fatal error stops
// the remaining queue.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	return p.run(ctx, func() ([]string, error) {
		return p.fetcher.Fetch(ctx)
	})
}

// ImportFiles imports local files without contacting the remote host
func (p *Pipeline) ImportFiles(ctx context.Context, files []string) (*Summary, error) {
	return p.run(ctx, func() ([]string, error) {
		return files, nil
	})
}

func (p *Pipeline) run(ctx context.Context, source func() ([]string, error)) (*Summary, error) {
	started := time.Now()
	sum := &Summary{RunID: uuid.NewString()}

	files, err := source()
	if err == nil {
		p.metrics.FilesFetched.Add(float64(len(files)))
		err = p.importAll(ctx, files, sum)
	}

	p.finish(sum, started, err)
	if err != nil {
		return sum, err
	}

	log.Printf("[ETL] Import finished: %d new rows stored, %d duplicates skipped", sum.Inserted, sum.Skipped())
	return sum, nil
}

func (p *Pipeline) importAll(ctx context.Context, files []string, sum *Summary) error {
	if err := p.store.Initialize(p.forceReload); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep, err := p.ImportFile(f)
		if err != nil {
			return err
		}
		sum.Files = append(sum.Files, rep)
		sum.Parsed += rep.Parsed
		sum.Inserted += rep.Inserted
	}
	return nil
}

// ImportFile parses one file and inserts its events as a single batch. The
// store must already be initialized.
func (p *Pipeline) ImportFile(path string) (FileReport, error) {
	rep := FileReport{Path: path}
	log.Printf("[ETL] Importing %s", path)

	events, stats, err := ingest.ParseFile(path, p.parser)
	rep.Lines = stats.Lines
	p.metrics.LinesRead.Add(float64(stats.Lines))
	if err != nil {
		return rep, err
	}
	rep.Parsed = stats.Parsed
	p.metrics.EventsParsed.Add(float64(stats.Parsed))

	inserted, err := p.store.InsertBatch(events)
	if err != nil {
		return rep, fmt.Errorf("failed to store events from %s: %w", path, err)
	}
	rep.Inserted = inserted
	rep.Skipped = rep.Parsed - inserted
	p.metrics.EventsInserted.Add(float64(inserted))
	p.metrics.Duplicates.Add(float64(rep.Skipped))

	log.Printf("[ETL] %d new rows imported from %s", rep.Inserted, path)
	log.Printf("[ETL] %d rows from %s were duplicates and skipped", rep.Skipped, path)
	return rep, nil
}

func (p *Pipeline) finish(sum *Summary, started time.Time, runErr error) {
	finished := time.Now()
	p.metrics.RunDuration.Set(finished.Sub(started).Seconds())
	if runErr == nil {
		p.metrics.LastSuccess.Set(float64(finished.Unix()))
	}

	rec := types.RunRecord{
		RunID:      sum.RunID,
		Mode:       p.mode,
		Force:      p.forceReload,
		Parsed:     sum.Parsed,
		Inserted:   sum.Inserted,
		Skipped:    sum.Skipped(),
		StartedAt:  started,
		FinishedAt: finished,
	}
	for _, f := range sum.Files {
		rec.Files = append(rec.Files, f.Path)
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := p.audit.LogRun(rec); err != nil {
		log.Printf("[ETL] Failed to write audit log: %v", err)
	}
}

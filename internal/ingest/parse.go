package ingest

import (
	"accesslog-etl/internal/parser"
	"accesslog-etl/internal/types"
	"fmt"
	"log"
)

// FileStats counts what happened to the lines of one file
type FileStats struct {
	Lines  int
	Parsed int
}

// Skipped is the number of lines that did not match the log format
func (s FileStats) Skipped() int {
	return s.Lines - s.Parsed
}

// ParseFile reads every line of path through p. Non-matching lines are
// skipped; any parser or read error aborts the file.
func ParseFile(path string, p parser.Parser) ([]types.AccessEvent, FileStats, error) {
	var stats FileStats

	log.Printf("[PARSE] Processing %s", path)
	reader := NewFileReader(path)
	lines, err := reader.Start()
	if err != nil {
		return nil, stats, err
	}

	var events []types.AccessEvent
	for line := range lines {
		stats.Lines++
		evt, err := p.Parse(line.Content)
		if err != nil {
			reader.Stop()
			return nil, stats, fmt.Errorf("%s line %d: %w", path, line.Num, err)
		}
		if evt == nil {
			continue
		}
		stats.Parsed++
		events = append(events, *evt)
	}

	// the line channel also closes when the read fails part way
	if err := reader.Stop(); err != nil {
		return nil, stats, fmt.Errorf("failed to read %s: %w", path, err)
	}

	log.Printf("[PARSE] %d of %d lines in %s parsed", stats.Parsed, stats.Lines, path)
	return events, stats, nil
}

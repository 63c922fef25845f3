package ingest

import (
	"fmt"
	"log"

	"github.com/nxadm/tail"
)

// LogLine represents a raw line from a staged log file
type LogLine struct {
	Source  string
	Num     int
	Content string
}

// FileReader streams the lines of one staged file from start to EOF
type FileReader struct {
	path string
	t    *tail.Tail
	done chan struct{}
}

// NewFileReader creates a reader for a path
func NewFileReader(path string) *FileReader {
	return &FileReader{
		path: path,
		done: make(chan struct{}),
	}
}

// Start opens the file and returns a channel of its lines. The channel is
// closed at EOF; the file is not followed.
func (f *FileReader) Start() (<-chan LogLine, error) {
	config := tail.Config{
		Follow:    false,
		ReOpen:    false,
		MustExist: true,
		Poll:      true, // no inotify watch for a one-shot read
		Logger:    tail.DiscardingLogger,
	}

	t, err := tail.TailFile(f.path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", f.path, err)
	}
	f.t = t

	out := make(chan LogLine)

	go func() {
		defer close(out)
		n := 0
		for line := range t.Lines {
			n++
			if line.Err != nil {
				log.Printf("[PARSE] %s line %d: %v", f.path, n, line.Err)
				continue
			}
			select {
			case out <- LogLine{Source: f.path, Num: n, Content: line.Text}:
			case <-f.done:
				return
			}
		}
	}()

	return out, nil
}

// Stop releases the file handle and returns the read error that ended the
// line channel, if any. It must be called exactly once, also when the
// consumer abandons the channel before EOF.
func (f *FileReader) Stop() error {
	close(f.done)
	if f.t != nil {
		return f.t.Stop()
	}
	return nil
}

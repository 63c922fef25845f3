package remote

import (
	"accesslog-etl/internal/types"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fetcher stages remote log files locally for import
type Fetcher struct {
	sftp     types.SFTPConfig
	localDir string
	mode     types.Mode
	filter   *NameFilter
	dial     Dialer
}

func NewFetcher(cfg *types.Config, dial Dialer) (*Fetcher, error) {
	filter, err := NewNameFilter(cfg.Import.LogfilePattern, cfg.Import.ExcludedFiles)
	if err != nil {
		return nil, err
	}
	if dial == nil {
		dial = DialSFTP
	}
	return &Fetcher{
		sftp:     cfg.SFTP,
		localDir: cfg.Import.LocalDir,
		mode:     cfg.Import.Mode,
		filter:   filter,
		dial:     dial,
	}, nil
}

// Filter exposes the name rules used for staging
func (f *Fetcher) Filter() *NameFilter {
	return f.filter
}

// Fetch clears the staging dir, downloads the files selected by the mode,
// decompresses them and returns the local paths ready to parse, sorted by
// name. Connection failures are fatal.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(f.localDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	ClearDir(f.localDir)

	selected, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	for _, rf := range selected {
		if !strings.HasSuffix(rf.Name, gzSuffix) {
			continue
		}
		if _, err := Gunzip(filepath.Join(f.localDir, rf.Name)); err != nil {
			return nil, err
		}
	}

	files, err := f.LocalFiles()
	if err != nil {
		return nil, err
	}
	log.Printf("[FETCH] Files for import: %v", files)
	return files, nil
}

func (f *Fetcher) download(ctx context.Context) ([]types.RemoteFile, error) {
	log.Printf("[FETCH] Connecting to %s:%d ...", f.sftp.Host, f.sftp.Port)
	sess, err := f.dial(ctx, f.sftp)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	remote, err := sess.List(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[FETCH] Found %d remote files", len(remote))

	selected := SelectFiles(remote, f.filter, f.mode)
	if f.mode == types.ModeDaily {
		if len(selected) == 0 {
			log.Println("[FETCH] Daily mode: no matching log files found")
		} else {
			log.Printf("[FETCH] Daily mode: importing only %s", selected[0].Name)
		}
	} else {
		log.Printf("[FETCH] %d log files match", len(selected))
	}

	for _, rf := range selected {
		if err := f.fetchOne(ctx, sess, rf); err != nil {
			return nil, err
		}
	}
	return selected, nil
}

// fetchOne downloads rf unless a local copy of the same size exists
func (f *Fetcher) fetchOne(ctx context.Context, sess Session, rf types.RemoteFile) error {
	local := filepath.Join(f.localDir, rf.Name)
	if fi, err := os.Stat(local); err == nil {
		if fi.Size() == rf.Size {
			log.Printf("[FETCH] %s already exists locally, skipping", rf.Name)
			return nil
		}
		log.Printf("[FETCH] %s exists with size %d, remote has %d, downloading again", rf.Name, fi.Size(), rf.Size)
	}

	log.Printf("[FETCH] Downloading %s ...", rf.Name)
	return writeAtomic(local, func(w io.Writer) error {
		_, err := sess.Download(ctx, rf.Name, w)
		return err
	})
}

// LocalFiles lists the staged files that are ready to parse
func (f *Fetcher) LocalFiles() ([]string, error) {
	entries, err := os.ReadDir(f.localDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !f.filter.Importable(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(f.localDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

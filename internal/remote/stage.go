package remote

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const gzSuffix = ".gz"

// ClearDir removes the regular files in dir and keeps subdirectories. Failures
// are logged and do not stop the sweep.
func ClearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[FETCH] Failed to read staging dir %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			log.Printf("[FETCH] Failed to delete %s: %v", p, err)
			continue
		}
		log.Printf("[FETCH] Deleted local file %s", p)
	}
}

// Gunzip decompresses path (ending in .gz) next to itself without the
// suffix. An existing target is left alone.
func Gunzip(path string) (string, error) {
	out := strings.TrimSuffix(path, gzSuffix)
	if _, err := os.Stat(out); err == nil {
		log.Printf("[FETCH] %s already exists, skipping", out)
		return out, nil
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", path, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("error creating gzip reader for %s: %w", path, err)
	}
	defer zr.Close()

	log.Printf("[FETCH] Decompressing %s -> %s", path, out)
	err = writeAtomic(out, func(w io.Writer) error {
		_, err := io.Copy(w, zr)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("error decompressing %s: %w", path, err)
	}
	return out, nil
}

// writeAtomic writes through a temp file and renames it into place, so an
// interrupted write never leaves a truncated file under the final name.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

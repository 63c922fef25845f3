package remote

import (
	"accesslog-etl/internal/types"
	"fmt"
	"regexp"
	"strings"
)

// NameFilter decides which file names are importable logs
type NameFilter struct {
	pattern  *regexp.Regexp
	excluded map[string]bool
}

// NewNameFilter compiles pattern anchored at the start of the name
func NewNameFilter(pattern string, excluded []string) (*NameFilter, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid logfile pattern %q: %w", pattern, err)
	}
	ex := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		ex[name] = true
	}
	return &NameFilter{pattern: re, excluded: ex}, nil
}

// Match reports whether name matches the pattern and is not excluded
func (f *NameFilter) Match(name string) bool {
	return f.pattern.MatchString(name) && !f.excluded[name]
}

// Importable is Match restricted to decompressed files
func (f *NameFilter) Importable(name string) bool {
	return f.Match(name) && !strings.HasSuffix(name, gzSuffix)
}

// SelectFiles applies the filter and the mode. Daily mode keeps only the most
// recently modified match; ties keep the first listed.
func SelectFiles(files []types.RemoteFile, filter *NameFilter, mode types.Mode) []types.RemoteFile {
	var matched []types.RemoteFile
	for _, f := range files {
		if filter.Match(f.Name) {
			matched = append(matched, f)
		}
	}

	if mode != types.ModeDaily || len(matched) == 0 {
		return matched
	}

	newest := matched[0]
	for _, f := range matched[1:] {
		if f.ModTime.After(newest.ModTime) {
			newest = f
		}
	}
	return []types.RemoteFile{newest}
}

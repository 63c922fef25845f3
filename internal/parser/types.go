package parser

import (
	"accesslog-etl/internal/types"
	"errors"
)

// ErrBadTimestamp is returned when a line has the access-log shape but its
// request time cannot be read. Callers treat it as fatal for the file.
var ErrBadTimestamp = errors.New("unparseable request time")

// Parser turns one raw line into an event. A nil event with a nil error
// means the line did not match and should be skipped.
type Parser interface {
	Parse(line string) (*types.AccessEvent, error)
}

// Classifier is the subset of classify.Classifier the parser depends on
type Classifier interface {
	IsBot(userAgent string) bool
	IsAdminTech(path string) bool
}

package parser

import (
	"accesslog-etl/internal/attribution"
	"accesslog-etl/internal/types"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// requestTimeLayout is the date-time part of [01/Jan/2021:10:00:00 +0000]
const requestTimeLayout = "02/Jan/2006:15:04:05"

// AccessParser parses the hoster's combined log format with virtual host and a trailing field:
// 1.2.3.4 - - [01/Jan/2021:10:00:00 +0000] "GET /path HTTP/1.1" 200 123 example.com "-" "UserAgent" "-"
type AccessParser struct {
	re         *regexp.Regexp
	classifier Classifier
}

func NewAccessParser(classifier Classifier) *AccessParser {
	// 1=IP, 2=Time, 3=Method, 4=Target, 5=Status, 6=Size, 7=VHost, 8=Ref, 9=UA, 10=Last
	return &AccessParser{
		re:         regexp.MustCompile(`^(\S+) \S+ \S+ \[(.+?)\] "(\S+) (\S+)(?: \S+)?" (\d{3}) (\S+) (\S+) "(.*?)" "(.*?)" "(.*?)"`),
		classifier: classifier,
	}
}

func (p *AccessParser) Parse(line string) (*types.AccessEvent, error) {
	matches := p.re.FindStringSubmatch(line)
	if matches == nil {
		return nil, nil
	}

	ts, err := normalizeTime(matches[2])
	if err != nil {
		return nil, err
	}

	// vhost (7) and the trailing field (10) are not stored
	path, query := splitTarget(matches[4])
	status, _ := strconv.Atoi(matches[5])
	referrer := matches[8]
	ua := matches[9]

	isAdmin := p.classifier.IsAdminTech(path)
	utm := attribution.ExtractUTM(referrer)

	return &types.AccessEvent{
		Timestamp:   ts,
		IP:          matches[1],
		Method:      matches[3],
		Path:        path,
		Query:       query,
		Status:      status,
		Size:        matches[6],
		Referrer:    referrer,
		UserAgent:   ua,
		IsBot:       p.classifier.IsBot(ua),
		IsAdminTech: isAdmin,
		IsContent:   !isAdmin,
		UTMSource:   utm.Source,
		UTMMedium:   utm.Medium,
		UTMCampaign: utm.Campaign,
	}, nil
}

// normalizeTime drops the zone offset and reformats the wall clock time
func normalizeTime(raw string) (string, error) {
	dt := raw
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		dt = raw[:i]
	}
	t, err := time.Parse(requestTimeLayout, dt)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
	}
	return t.Format(types.TimestampLayout), nil
}

// splitTarget separates the request target into path and query (without '?').
// Fragments are discarded. The path keeps its bytes as logged; for an
// absolute-form target only the scheme and host are removed.
func splitTarget(target string) (string, string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	path, query, _ := strings.Cut(target, "?")

	if !strings.HasPrefix(path, "/") {
		if i := strings.Index(path, "://"); i > 0 {
			rest := path[i+len("://"):]
			path = ""
			if j := strings.IndexByte(rest, '/'); j >= 0 {
				path = rest[j:]
			}
		}
	}
	return path, query
}

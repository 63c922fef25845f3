package report

import (
	"accesslog-etl/internal/geo"
	"accesslog-etl/internal/types"
	"fmt"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// EventSource is the read side of store.Store
type EventSource interface {
	LoadAll() ([]types.AccessEvent, error)
}

// Stats is the traffic overview of a date range
type Stats struct {
	Total        int
	RealUsers    int // content GETs by humans
	UniqueUsers  int
	Bots         int
	Errors       int // 4xx and 5xx
	PeakHour     int // -1 without human traffic
	PeakCount    int
	TopPages     []PageHits
	TopLocations []LocationHits
}

// PageHits represents a path with its hit count
type PageHits struct {
	Path string
	Hits int
}

// LocationHits represents a location with its hit count
type LocationHits struct {
	geo.Location
	Hits int
}

// Range limits events to [From, To] by calendar day; zero values are open
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange reads optional YYYY-MM-DD bounds
func ParseRange(from, to string) (Range, error) {
	var r Range
	var err error
	if from != "" {
		if r.From, err = time.Parse(dateLayout, from); err != nil {
			return r, fmt.Errorf("invalid from date %q: %w", from, err)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(dateLayout, to); err != nil {
			return r, fmt.Errorf("invalid to date %q: %w", to, err)
		}
	}
	return r, nil
}

// Contains compares on the normalized timestamp; the to day is inclusive
func (r Range) Contains(timestamp string) bool {
	t, err := time.Parse(types.TimestampLayout, timestamp)
	if err != nil {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Compute builds the overview. resolver may be nil.
func Compute(events []types.AccessEvent, r Range, resolver geo.Resolver, top int) *Stats {
	if top < 0 {
		top = 0
	}
	stats := &Stats{PeakHour: -1}
	pages := make(map[string]int)
	locations := make(map[geo.Location]int)
	ips := make(map[string]bool)
	var hours [24]int

	for _, e := range events {
		if !r.Contains(e.Timestamp) {
			continue
		}
		stats.Total++
		if e.IsBot {
			stats.Bots++
		}
		if e.Status >= 400 && e.Status < 600 {
			stats.Errors++
		}
		if e.IsBot || e.IsAdminTech || !e.IsContent || !strings.EqualFold(e.Method, "GET") {
			continue
		}

		stats.RealUsers++
		ips[e.IP] = true
		pages[e.Path]++
		if ts, err := time.Parse(types.TimestampLayout, e.Timestamp); err == nil {
			hours[ts.Hour()]++
		}
		if resolver != nil {
			locations[resolver.Lookup(e.IP)]++
		}
	}

	stats.UniqueUsers = len(ips)
	for h, n := range hours {
		if n > stats.PeakCount {
			stats.PeakHour, stats.PeakCount = h, n
		}
	}

	for path, n := range pages {
		stats.TopPages = append(stats.TopPages, PageHits{Path: path, Hits: n})
	}
	sort.Slice(stats.TopPages, func(i, j int) bool {
		a, b := stats.TopPages[i], stats.TopPages[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		return a.Path < b.Path
	})
	if len(stats.TopPages) > top {
		stats.TopPages = stats.TopPages[:top]
	}

	for loc, n := range locations {
		stats.TopLocations = append(stats.TopLocations, LocationHits{Location: loc, Hits: n})
	}
	sort.Slice(stats.TopLocations, func(i, j int) bool {
		a, b := stats.TopLocations[i], stats.TopLocations[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.City < b.City
	})
	if len(stats.TopLocations) > top {
		stats.TopLocations = stats.TopLocations[:top]
	}

	return stats
}

// Load reads every event from src and computes the overview
func Load(src EventSource, r Range, resolver geo.Resolver, top int) (*Stats, error) {
	events, err := src.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return Compute(events, r, resolver, top), nil
}

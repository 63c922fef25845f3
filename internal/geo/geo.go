package geo

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// Unknown markers used when an address cannot be resolved
const (
	UnknownCountry = "?"
	UnknownCity    = "-"
)

// Location is a resolved client address
type Location struct {
	Country string
	City    string
}

// Resolver maps an IP to a location
type Resolver interface {
	Lookup(ip string) Location
}

type lookupFunc func(ip net.IP) (Location, error)

// Cache resolves addresses against a GeoIP2/GeoLite2 City database and
// remembers every answer for the life of the process.
type Cache struct {
	mu     sync.Mutex
	lookup lookupFunc
	closer func() error
	seen   map[string]Location
}

// Open loads the MaxMind database at path
func Open(path string) (*Cache, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	c := newCache(func(ip net.IP) (Location, error) {
		rec, err := reader.City(ip)
		if err != nil {
			return Location{}, err
		}
		loc := Location{Country: rec.Country.Names["en"], City: rec.City.Names["en"]}
		if loc.Country == "" {
			loc.Country = rec.Country.IsoCode
		}
		return loc, nil
	})
	c.closer = reader.Close
	return c, nil
}

func newCache(lookup lookupFunc) *Cache {
	return &Cache{lookup: lookup, seen: make(map[string]Location)}
}

// Lookup never fails; unresolvable addresses map to ("?", "-")
func (c *Cache) Lookup(ip string) Location {
	c.mu.Lock()
	defer c.mu.Unlock()

	if loc, ok := c.seen[ip]; ok {
		return loc
	}

	loc := Location{Country: UnknownCountry, City: UnknownCity}
	if parsed := net.ParseIP(ip); parsed != nil {
		if res, err := c.lookup(parsed); err == nil {
			if res.Country != "" {
				loc.Country = res.Country
			}
			if res.City != "" {
				loc.City = res.City
			}
		}
	}
	c.seen[ip] = loc
	return loc
}

func (c *Cache) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

package attribution

import (
	"net/url"
	"strings"
)

// UTM holds campaign parameters; nil means the parameter was absent
type UTM struct {
	Source   *string
	Medium   *string
	Campaign *string
}

// ExtractUTM reads utm_source, utm_medium and utm_campaign from a referrer URL.
// It never fails: malformed referrers yield whatever can still be read.
func ExtractUTM(referrer string) UTM {
	if referrer == "" || referrer == "-" {
		return UTM{}
	}

	values := queryValues(referrer)
	return UTM{
		Source:   first(values, "utm_source"),
		Medium:   first(values, "utm_medium"),
		Campaign: first(values, "utm_campaign"),
	}
}

func queryValues(referrer string) url.Values {
	var raw string
	if u, err := url.Parse(referrer); err == nil {
		raw = u.RawQuery
	} else if i := strings.IndexByte(referrer, '?'); i >= 0 {
		raw = referrer[i+1:]
		if j := strings.IndexByte(raw, '#'); j >= 0 {
			raw = raw[:j]
		}
	}
	// ParseQuery keeps every pair it could decode even when it returns an error
	values, _ := url.ParseQuery(raw)
	return values
}

// first returns the first non-blank value of key
func first(values url.Values, key string) *string {
	for _, v := range values[key] {
		if v != "" {
			s := v
			return &s
		}
	}
	return nil
}

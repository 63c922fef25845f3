package classify

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
)

// DefaultBotAgents is used when no bot list file is available
var DefaultBotAgents = []string{
	"ahrefsbot",
	"amazonbot",
	"applebot",
	"baiduspider",
	"bingbot",
	"bytespider",
	"ccbot",
	"claudebot",
	"crawler",
	"curl",
	"dataforseobot",
	"duckduckbot",
	"facebookexternalhit",
	"gptbot",
	"googlebot",
	"headlesschrome",
	"mj12bot",
	"petalbot",
	"python-requests",
	"semrushbot",
	"slurp",
	"spider",
	"uptimerobot",
	"wget",
	"yandexbot",
}

// BotMatcher flags user agents that contain a known automated-client identifier
type BotMatcher struct {
	re *regexp.Regexp // nil when the list is empty
}

// NewBotMatcher compiles the identifiers into one case-insensitive alternation
func NewBotMatcher(ids []string) *BotMatcher {
	ids = normalize(ids)
	if len(ids) == 0 {
		return &BotMatcher{}
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = regexp.QuoteMeta(id)
	}
	return &BotMatcher{
		re: regexp.MustCompile(`(?i)` + strings.Join(quoted, "|")),
	}
}

// LoadBotMatcher builds a matcher from the list file, or from the defaults
// when the file does not exist.
func LoadBotMatcher(path string) (*BotMatcher, error) {
	ids, err := LoadBotList(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[BOTS] Bot list %s not found, using %d built-in identifiers", path, len(DefaultBotAgents))
		return NewBotMatcher(DefaultBotAgents), nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[BOTS] Loaded %d identifiers from %s", len(ids), path)
	return NewBotMatcher(ids), nil
}

// LoadBotList reads one identifier per line; blank lines and # comments are skipped
func LoadBotList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bot list: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bot list: %w", err)
	}
	return normalize(ids), nil
}

// IsBot reports whether the user agent matches a listed identifier
func (m *BotMatcher) IsBot(userAgent string) bool {
	if m == nil || m.re == nil || userAgent == "" {
		return false
	}
	return m.re.MatchString(userAgent)
}

// normalize lowercases, de-duplicates and sorts identifiers
func normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

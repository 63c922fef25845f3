package parser

import (
	"accesslog-etl/internal/classify"
	"errors"
	"testing"
)

func newTestParser() *AccessParser {
	c := classify.New(
		classify.NewBotMatcher([]string{"BotAgent"}),
		classify.NewAdminPaths([]string{"/wp-admin", "/wp-content/"}),
	)
	return NewAccessParser(c)
}

func TestAccessParser_Parse_Human(t *testing.T) {
	parser := newTestParser()

	line := `127.0.0.1 - - [01/Jan/2021:10:00:00 +0000] "GET /blog/page.html?utm_source=google&utm_medium=ad&utm_campaign=test HTTP/1.1" 200 1000 example.com "http://example.com/?utm_source=google&utm_medium=ad&utm_campaign=test" "Mozilla/5.0" "-"`
	evt, err := parser.Parse(line)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if evt == nil {
		t.Fatal("Expected parsed event, got nil")
	}

	if evt.Timestamp != "2021-01-01T10:00:00" {
		t.Errorf("Expected timestamp '2021-01-01T10:00:00', got '%s'", evt.Timestamp)
	}
	if evt.IP != "127.0.0.1" {
		t.Errorf("Expected IP '127.0.0.1', got '%s'", evt.IP)
	}
	if evt.Path != "/blog/page.html" {
		t.Errorf("Expected path '/blog/page.html', got '%s'", evt.Path)
	}
	if evt.Query != "utm_source=google&utm_medium=ad&utm_campaign=test" {
		t.Errorf("Unexpected query '%s'", evt.Query)
	}
	if evt.Status != 200 || evt.Size != "1000" {
		t.Errorf("Expected status 200 size 1000, got %d %s", evt.Status, evt.Size)
	}
	if evt.UserAgent != "Mozilla/5.0" {
		t.Errorf("Expected UA 'Mozilla/5.0', got '%s'", evt.UserAgent)
	}
	if evt.IsBot || evt.IsAdminTech || !evt.IsContent {
		t.Errorf("Expected human content request, got bot=%v admin=%v content=%v", evt.IsBot, evt.IsAdminTech, evt.IsContent)
	}
	if evt.UTMSource == nil || *evt.UTMSource != "google" ||
		evt.UTMMedium == nil || *evt.UTMMedium != "ad" ||
		evt.UTMCampaign == nil || *evt.UTMCampaign != "test" {
		t.Errorf("Expected UTM (google, ad, test), got (%v, %v, %v)", evt.UTMSource, evt.UTMMedium, evt.UTMCampaign)
	}
}

func TestAccessParser_Parse_BotAdmin(t *testing.T) {
	parser := newTestParser()

	line := `127.0.0.2 - - [01/Jan/2021:11:00:00 +0000] "GET /wp-admin/admin.php HTTP/1.1" 404 0 example.com "-" "BotAgent" "-"`
	evt, err := parser.Parse(line)
	if err != nil || evt == nil {
		t.Fatalf("Expected parsed event, got %v / %v", evt, err)
	}

	if !evt.IsBot {
		t.Error("Expected bot")
	}
	if !evt.IsAdminTech || evt.IsContent {
		t.Errorf("Expected admin request, got admin=%v content=%v", evt.IsAdminTech, evt.IsContent)
	}
	if evt.Query != "" {
		t.Errorf("Expected empty query, got '%s'", evt.Query)
	}
	if evt.UTMSource != nil || evt.UTMMedium != nil || evt.UTMCampaign != nil {
		t.Error("Expected no UTM values for '-' referrer")
	}
}

func TestAccessParser_Parse_OffsetDiscarded(t *testing.T) {
	parser := newTestParser()

	line := `10.0.0.1 - - [15/Mar/2024:23:59:59 +0200] "POST /api HTTP/2.0" 201 - example.com "-" "curl/8.0" "-"`
	evt, err := parser.Parse(line)
	if err != nil || evt == nil {
		t.Fatalf("Expected parsed event, got %v / %v", evt, err)
	}
	if evt.Timestamp != "2024-03-15T23:59:59" {
		t.Errorf("Expected local wall clock time, got '%s'", evt.Timestamp)
	}
	if evt.Size != "-" {
		t.Errorf("Expected size sentinel '-', got '%s'", evt.Size)
	}
}

func TestAccessParser_Parse_NoProtocol(t *testing.T) {
	parser := newTestParser()

	line := `10.0.0.1 - - [15/Mar/2024:10:00:00 +0000] "GET /" 400 0 example.com "-" "-" "-"`
	evt, err := parser.Parse(line)
	if err != nil || evt == nil {
		t.Fatalf("Expected parsed event, got %v / %v", evt, err)
	}
	if evt.Path != "/" {
		t.Errorf("Expected path '/', got '%s'", evt.Path)
	}
}

func TestAccessParser_Parse_Invalid(t *testing.T) {
	parser := newTestParser()

	for _, line := range []string{
		"This is not an access log line",
		"",
		// plain combined format without vhost and trailing field
		`1.2.3.4 - - [01/Jan/2021:10:00:00 +0000] "GET / HTTP/1.1" 200 10 "-" "UA"`,
		// status must be three digits
		`1.2.3.4 - - [01/Jan/2021:10:00:00 +0000] "GET / HTTP/1.1" 20 10 host "-" "UA" "-"`,
	} {
		evt, err := parser.Parse(line)
		if err != nil {
			t.Errorf("Expected no error for %q, got %v", line, err)
		}
		if evt != nil {
			t.Errorf("Expected nil for invalid line %q, got event", line)
		}
	}
}

func TestAccessParser_Parse_BadTimestamp(t *testing.T) {
	parser := newTestParser()

	line := `1.2.3.4 - - [yesterday +0000] "GET / HTTP/1.1" 200 10 host "-" "UA" "-"`
	evt, err := parser.Parse(line)
	if evt != nil {
		t.Error("Expected no event")
	}
	if !errors.Is(err, ErrBadTimestamp) {
		t.Errorf("Expected ErrBadTimestamp, got %v", err)
	}
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		target, path, query string
	}{
		{"/a/b?x=1&y=2", "/a/b", "x=1&y=2"},
		{"/a/b", "/a/b", ""},
		{"/a?", "/a", ""},
		{"/a#frag", "/a", ""},
		{"/caf%C3%A9?q", "/caf%C3%A9", "q"},
		{"http://example.com/x?y=1", "/x", "y=1"},
		{"/bad%zz?q=1", "/bad%zz", "q=1"},
		{"/café/x?q=1", "/café/x", "q=1"},
		{"/a|b", "/a|b", ""},
		{"/a%7Cb", "/a%7Cb", ""},
		{"/a{b}", "/a{b}", ""},
		{"http://example.com", "", ""},
	}
	for _, tt := range tests {
		path, query := splitTarget(tt.target)
		if path != tt.path || query != tt.query {
			t.Errorf("splitTarget(%q) = (%q, %q), want (%q, %q)", tt.target, path, query, tt.path, tt.query)
		}
	}
}

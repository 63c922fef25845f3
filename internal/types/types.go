package types

import "time"

// Mode selects which remote files a run imports
type Mode string

const (
	ModeBulk  Mode = "bulk"  // every matching remote file
	ModeDaily Mode = "daily" // only the most recently modified match
)

// TimestampLayout is the normalized event time format. The source offset
// (e.g. +0200) is dropped on purpose: timestamps are stored as naive
// server-local wall clock time.
const TimestampLayout = "2006-01-02T15:04:05"

// AccessEvent is one classified request parsed from a raw access-log line.
// The tuple (Timestamp, IP, Method, Path, Query, UserAgent) identifies it.
type AccessEvent struct {
	Timestamp   string  `json:"timestamp"`
	IP          string  `json:"ip"`
	Method      string  `json:"method"`
	Path        string  `json:"path"`
	Query       string  `json:"query"`
	Status      int     `json:"status"`
	Size        string  `json:"size"` // "-" when nothing was sent
	Referrer    string  `json:"referrer"`
	UserAgent   string  `json:"user_agent"`
	IsBot       bool    `json:"is_bot"`
	IsAdminTech bool    `json:"is_admin_tech"`
	IsContent   bool    `json:"is_content"`
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
}

// RemoteFile is a directory entry on the remote host
type RemoteFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// RunRecord is the audit trail entry written once per ingestion run
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Mode       Mode      `json:"mode"`
	Force      bool      `json:"force_reload"`
	Files      []string  `json:"files"`
	Parsed     int       `json:"parsed"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// SFTPConfig holds the remote connection parameters
type SFTPConfig struct {
	Host           string `yaml:"host" validate:"required"`
	Port           int    `yaml:"port" validate:"min=1,max=65535"`
	User           string `yaml:"user" validate:"required"`
	Password       string `yaml:"password"`
	KnownHostsFile string `yaml:"known_hosts_file"` // empty = host key not verified
	RemoteDir      string `yaml:"remote_dir"`
}

// Config represents the application configuration
type Config struct {
	SFTP SFTPConfig `yaml:"sftp"`

	Import struct {
		LocalDir       string   `yaml:"local_dir" validate:"required"`
		Mode           Mode     `yaml:"mode" validate:"oneof=bulk daily"`
		ForceReload    bool     `yaml:"force_reload"`
		LogfilePattern string   `yaml:"logfile_pattern" validate:"required"`
		ExcludedFiles  []string `yaml:"excluded_files"`
	} `yaml:"import"`

	Store struct {
		DBFile string `yaml:"db_file" validate:"required"`
	} `yaml:"store"`

	Classify struct {
		BotListFile   string   `yaml:"bot_list_file"`
		AdminPrefixes []string `yaml:"admin_prefixes"`
	} `yaml:"classify"`

	Output struct {
		AuditLogPath    string `yaml:"audit_log_path"`
		MetricsTextfile string `yaml:"metrics_textfile"` // node_exporter textfile collector target
		GeoIPDB         string `yaml:"geoip_db"`
	} `yaml:"output"`
}

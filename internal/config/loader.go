package config

import (
	"accesslog-etl/internal/types"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the layout of the hosting provider the importer was built for.
const (
	DefaultLogfilePattern = `access\.log\.\d+(\.\d+)?(\.gz)?$`
	DefaultLocalDir       = "./logs"
	DefaultDBFile         = "accesslog.db"
	DefaultBotListFile    = "bot_user_agents.txt"
	DefaultSFTPPort       = 22
)

// DefaultExcludedFiles are remote artifacts that match the pattern family but
// are never importable logs.
var DefaultExcludedFiles = []string{"traffic.db", "sftp.log", "access.log.current"}

// DefaultAdminPrefixes are platform-internal request paths
var DefaultAdminPrefixes = []string{
	"/wp-includes/",
	"/wp-content/",
	"/wp-json/",
	"/xmlrpc.php",
	"/wp-admin",
	"/wp-login.php",
	"/wp-cron.php",
}

var validate = validator.New()

// LoadConfig reads the configuration from the given path. An empty path skips
// the file and builds the config from the environment and defaults only.
func LoadConfig(path string) (*types.Config, error) {
	var cfg types.Config

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := Validate(&cfg, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the finished config, including any CLI overrides.
// The SFTP section is only checked when the caller talks to the remote host.
func Validate(cfg *types.Config, remote bool) error {
	var err error
	if remote {
		err = validate.Struct(cfg)
	} else {
		err = validate.StructExcept(cfg, "SFTP")
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overrides file values with environment variables, using the
// names of the .env based deployment.
func applyEnv(cfg *types.Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SFTP_HOST", &cfg.SFTP.Host)
	str("SFTP_USER", &cfg.SFTP.User)
	str("SFTP_PASSWORD", &cfg.SFTP.Password)
	str("SFTP_KNOWN_HOSTS", &cfg.SFTP.KnownHostsFile)
	str("SFTP_REMOTE_DIR", &cfg.SFTP.RemoteDir)
	str("LOCAL_DIR", &cfg.Import.LocalDir)
	str("LOGFILE_PATTERN", &cfg.Import.LogfilePattern)
	str("DB_FILE", &cfg.Store.DBFile)
	str("BOT_LIST_FILE", &cfg.Classify.BotListFile)
	str("AUDIT_LOG", &cfg.Output.AuditLogPath)
	str("METRICS_TEXTFILE", &cfg.Output.MetricsTextfile)
	str("GEOIP_DB", &cfg.Output.GeoIPDB)

	if v, ok := lookup("SFTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SFTP_PORT %q: %w", v, err)
		}
		cfg.SFTP.Port = port
	}
	if v, ok := lookup("MODE"); ok && v != "" {
		cfg.Import.Mode = types.Mode(strings.ToLower(v))
	}
	if v, ok := lookup("FORCE_RELOAD"); ok && v != "" {
		cfg.Import.ForceReload = strings.EqualFold(v, "true")
	}
	return nil
}

// applyDefaults fills everything left unset
func applyDefaults(cfg *types.Config) {
	if cfg.SFTP.Port == 0 {
		cfg.SFTP.Port = DefaultSFTPPort
	}
	if cfg.SFTP.RemoteDir == "" {
		cfg.SFTP.RemoteDir = "."
	}
	if cfg.Import.LocalDir == "" {
		cfg.Import.LocalDir = DefaultLocalDir
	}
	if cfg.Import.Mode == "" {
		cfg.Import.Mode = types.ModeBulk
	}
	if cfg.Import.LogfilePattern == "" {
		cfg.Import.LogfilePattern = DefaultLogfilePattern
	}
	if cfg.Import.ExcludedFiles == nil {
		cfg.Import.ExcludedFiles = append([]string(nil), DefaultExcludedFiles...)
	}
	if cfg.Store.DBFile == "" {
		cfg.Store.DBFile = DefaultDBFile
	}
	if cfg.Classify.BotListFile == "" {
		cfg.Classify.BotListFile = DefaultBotListFile
	}
	if cfg.Classify.AdminPrefixes == nil {
		cfg.Classify.AdminPrefixes = append([]string(nil), DefaultAdminPrefixes...)
	}
}

package cmd

import (
	"accesslog-etl/internal/classify"
	"accesslog-etl/internal/config"
	"accesslog-etl/internal/parser"
	"accesslog-etl/internal/types"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "accesslog-etl",
	Short: "Import web server access logs into SQLite",
	Long: `accesslog-etl downloads access logs from the hosting SFTP account,
classifies every request (bot or human, admin or content), extracts
campaign parameters and stores each event exactly once.

Configuration is read from an optional YAML file and the environment
(SFTP_HOST, SFTP_PORT, SFTP_USER, SFTP_PASSWORD, LOCAL_DIR, MODE,
FORCE_RELOAD, DB_FILE, LOGFILE_PATTERN, BOT_LIST_FILE).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
}

func loadConfig() (*types.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newParser builds the classifier once for the whole process
func newParser(cfg *types.Config) (*parser.AccessParser, error) {
	bots, err := classify.LoadBotMatcher(cfg.Classify.BotListFile)
	if err != nil {
		return nil, err
	}
	admin := classify.NewAdminPaths(cfg.Classify.AdminPrefixes)
	return parser.NewAccessParser(classify.New(bots, admin)), nil
}

// sanitize strips control characters (except newline) to prevent terminal injection
func sanitize(s string) string {
	var builder strings.Builder
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

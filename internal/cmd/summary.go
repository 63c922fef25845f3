package cmd

import (
	"accesslog-etl/internal/audit"
	"accesslog-etl/internal/geo"
	"accesslog-etl/internal/report"
	"accesslog-etl/internal/store"
	"accesslog-etl/internal/types"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
)

var (
	summaryFrom string
	summaryTo   string
	summaryTop  int
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a traffic overview from the stored events",
	Long: `Print total requests, human content hits, unique visitors, bots, errors,
the peak hour and the top pages. With output.geoip_db (or GEOIP_DB) set, the
top visitor locations are listed as well. With output.audit_log_path set, the
last successful import is shown at the end.

Examples:
  accesslog-etl summary
  accesslog-etl summary --from 2024-05-01 --to 2024-05-31 --top 20`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFrom, "from", "", "first day (YYYY-MM-DD)")
	summaryCmd.Flags().StringVar(&summaryTo, "to", "", "last day, inclusive (YYYY-MM-DD)")
	summaryCmd.Flags().IntVar(&summaryTop, "top", 10, "number of pages and locations to list")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if summaryTop < 0 {
		return fmt.Errorf("invalid --top %d: must not be negative", summaryTop)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := report.ParseRange(summaryFrom, summaryTo)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.DBFile)
	if err != nil {
		return err
	}
	defer st.Close()
	// make sure a fresh database has the table before reading
	if err := st.Initialize(false); err != nil {
		return err
	}

	var resolver geo.Resolver
	if cfg.Output.GeoIPDB != "" {
		c, err := geo.Open(cfg.Output.GeoIPDB)
		if err != nil {
			log.Printf("[GEO] %v, locations disabled", err)
		} else {
			defer c.Close()
			resolver = c
		}
	}

	stats, err := report.Load(st, r, resolver, summaryTop)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), stats)

	last, err := audit.NewLogger(cfg.Output.AuditLogPath).LastSuccess()
	if err != nil {
		log.Printf("[AUDIT] %v", err)
	}
	printLastRun(cmd.OutOrStdout(), last)
	return nil
}

func printLastRun(w io.Writer, rec *types.RunRecord) {
	if rec == nil {
		return
	}
	fmt.Fprintf(w, "\nLast import:      %s (%s, %d new rows, run %s)\n",
		rec.FinishedAt.Local().Format("2006-01-02 15:04:05"), rec.Mode, rec.Inserted, rec.RunID)
}

func printStats(w io.Writer, s *report.Stats) {
	fmt.Fprintf(w, "Total requests:   %d\n", s.Total)
	fmt.Fprintf(w, "Human page views: %d\n", s.RealUsers)
	fmt.Fprintf(w, "Unique visitors:  %d\n", s.UniqueUsers)
	fmt.Fprintf(w, "Bot requests:     %d\n", s.Bots)
	fmt.Fprintf(w, "Errors (4xx/5xx): %d\n", s.Errors)
	if s.PeakHour >= 0 {
		fmt.Fprintf(w, "Peak hour:        %02d:00 (%d views)\n", s.PeakHour, s.PeakCount)
	} else {
		fmt.Fprintln(w, "Peak hour:        -")
	}

	if len(s.TopPages) > 0 {
		fmt.Fprintln(w, "\nTop pages:")
		for _, p := range s.TopPages {
			fmt.Fprintf(w, "  %6d  %s\n", p.Hits, sanitize(p.Path))
		}
	}
	if len(s.TopLocations) > 0 {
		fmt.Fprintln(w, "\nTop locations:")
		for _, l := range s.TopLocations {
			fmt.Fprintf(w, "  %6d  %s, %s\n", l.Hits, sanitize(l.Country), sanitize(l.City))
		}
	}
}

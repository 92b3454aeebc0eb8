package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"file-reaper/internal/config"
	"file-reaper/internal/database"
	"file-reaper/internal/exitcodes"
	"file-reaper/internal/logging"
)

const dateLayout = "2006-01-02"

func main() {
	dbPath := flag.String("db", config.DefaultDatabasePath, "Path to deletion history database")
	recent := flag.Int("recent", 0, "Show N most recent outcomes")
	stats := flag.Bool("stats", false, "Show deletion statistics")
	action := flag.String("action", "", "Filter by action (DELETE, NOT_FOUND, ERROR)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	largest := flag.Int("largest", 0, "Show N largest deletions")
	days := flag.Int("days", 30, "Number of days for statistics")
	from := flag.String("from", "", "Show outcomes on or after this date (YYYY-MM-DD)")
	to := flag.String("to", "", "Show outcomes up to the end of this date (YYYY-MM-DD, default: today)")
	dbStats := flag.Bool("dbstats", false, "Show database file statistics")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	// Results go to stdout, diagnostics to stderr
	logger := logging.NewWriter(os.Stderr, "info")

	db, err := database.NewDeletionDB(*dbPath)
	if err != nil {
		logger.Error().Err(err).Str("db", *dbPath).Msg("failed to open database")
		os.Exit(exitcodes.RuntimeError)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	var qerr error
	switch {
	case *stats:
		qerr = showStats(db, *days, *jsonOutput)
	case *dbStats:
		qerr = showDatabaseStats(db, *dbPath, *jsonOutput)
	case *from != "":
		start, end, perr := parseRange(*from, *to, time.Now())
		if perr != nil {
			logger.Error().Err(perr).Msg("invalid date range")
			os.Exit(exitcodes.InvalidConfig)
		}
		qerr = showRecords(db.GetDeletionsByDateRange(start, end))(
			fmt.Sprintf("Outcomes from %s to %s", start.Format(dateLayout), end.Format(dateLayout)), *jsonOutput)
	case *recent > 0:
		qerr = showRecords(db.GetRecentDeletions(*recent))(fmt.Sprintf("Most recent %d outcomes", *recent), *jsonOutput)
	case *action != "":
		qerr = showRecords(db.GetDeletionsByAction(*action))("Records with action: "+*action, *jsonOutput)
	case *pathPattern != "":
		qerr = showRecords(db.GetDeletionsByPath(*pathPattern))("Records matching path pattern: "+*pathPattern, *jsonOutput)
	case *largest > 0:
		qerr = showRecords(db.GetLargestDeletions(*largest))(fmt.Sprintf("Largest %d deletions", *largest), *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  file-reaper-query -recent 10            # Show 10 most recent outcomes")
		fmt.Println("  file-reaper-query -stats -days 7        # Show statistics for the last week")
		fmt.Println("  file-reaper-query -action NOT_FOUND     # Show paths that were already gone")
		fmt.Println("  file-reaper-query -path '/tmp/%'        # Show outcomes under /tmp")
		fmt.Println("  file-reaper-query -largest 10           # Show 10 largest deletions")
		fmt.Println("  file-reaper-query -from 2024-01-01      # Show outcomes since a date")
		fmt.Println("  file-reaper-query -dbstats              # Show database size and record span")
		os.Exit(exitcodes.InvalidConfig)
	}

	if qerr != nil {
		logger.Error().Err(qerr).Msg("query failed")
		db.Close()
		os.Exit(exitcodes.RuntimeError)
	}
}

// parseRange turns -from/-to dates into local-time bounds. The end date is inclusive.
func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, from, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -from: %w", err)
	}

	endDay := now
	if to != "" {
		endDay, err = time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -to: %w", err)
		}
	}
	y, m, d := endDay.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.Local).AddDate(0, 0, 1).Add(-time.Nanosecond)

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to %s is before -from %s", end.Format(dateLayout), from)
	}
	return start, end, nil
}

func showDatabaseStats(db *database.DeletionDB, path string, jsonOutput bool) error {
	stats, err := db.GetDatabaseStats()
	if err != nil {
		return fmt.Errorf("get database statistics: %w", err)
	}

	if jsonOutput {
		return printJSON(stats)
	}

	fmt.Printf("Database: %s\n\n", path)
	fmt.Printf("Records:  %v\n", stats["total_records"])
	if size, ok := stats["database_size_bytes"].(int64); ok {
		fmt.Printf("Size:     %s\n", formatBytes(size))
	}
	if t, ok := stats["oldest_record"].(time.Time); ok {
		fmt.Printf("Oldest:   %s\n", t.Local().Format("2006-01-02 15:04:05"))
	}
	if t, ok := stats["newest_record"].(time.Time); ok {
		fmt.Printf("Newest:   %s\n", t.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showStats(db *database.DeletionDB, days int, jsonOutput bool) error {
	stats, err := db.GetDeletionStats(days)
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}

	if jsonOutput {
		return printJSON(stats)
	}

	fmt.Printf("Deletion Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Deleted:      %d\n", stats.TotalDeleted)
	fmt.Printf("Not found:    %d\n", stats.TotalNotFound)
	fmt.Printf("Errors:       %d\n", stats.TotalErrors)
	fmt.Printf("Delayed:      %d\n", stats.TotalDelayed)
	fmt.Printf("Space freed:  %s\n", formatBytes(stats.TotalBytesDeleted))

	if len(stats.ByAction) > 0 {
		actions := make([]string, 0, len(stats.ByAction))
		for a := range stats.ByAction {
			actions = append(actions, a)
		}
		sort.Strings(actions)

		fmt.Println("\nBy Action:")
		for _, a := range actions {
			fmt.Printf("  %-12s %d\n", a, stats.ByAction[a])
		}
	}
	return nil
}

// showRecords adapts a query result into a printer taking the heading and output mode
func showRecords(records []database.DeletionRecord, err error) func(string, bool) error {
	return func(heading string, jsonOutput bool) error {
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		if jsonOutput {
			if records == nil {
				records = []database.DeletionRecord{}
			}
			return printJSON(records)
		}
		fmt.Printf("%s\n\n", heading)
		printRecords(records)
		return nil
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printRecords(records []database.DeletionRecord) {
	if len(records) == 0 {
		fmt.Println("No records found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tDelay\tSize\tPath\tError")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-----\t----\t----\t-----")

	for _, r := range records {
		delay := "-"
		if r.Delayed {
			delay = fmt.Sprintf("%gs", r.DelaySeconds)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Action, delay,
			formatBytes(r.Size), r.Path, r.ErrorMessage)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

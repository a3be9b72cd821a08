package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simlint/cmd/simlint/ui"
	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/report"
	"simlint/internal/scan"
	"simlint/internal/store"
)

var (
	scanDataDir      string
	scanOut          string
	scanDeclaredDPS  string
	scanSimSeconds   float64
	scanGapTolerance float64
	scanWorkers      int
	scanNoDB         bool
	scanNoHTML       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a data directory and write reports",
	Long: `Parses every unit blueprint under --data-dir, computes effective DPS,
simulates cadence for multi-weapon units and records anomalies.

Writes <out>/report.json, <out>/html/ and appends the scan to <out>/scan.sqlite.
Unset numeric flags fall back to the config file.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanDataDir, "data-dir", "", "Directory with units/ (and optionally projectiles/)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Output directory (default from config)")
	scanCmd.Flags().StringVar(&scanDeclaredDPS, "declared-dps", "", "JSON or YAML file of unit id -> declared DPS")
	scanCmd.Flags().Float64Var(&scanSimSeconds, "simulation-seconds", 0, "Cadence simulation window in seconds")
	scanCmd.Flags().Float64Var(&scanGapTolerance, "cadence-gap-tolerance", 0, "Gap tolerance in seconds")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Concurrent blueprint workers")
	scanCmd.Flags().BoolVar(&scanNoDB, "no-db", false, "Do not store the scan in SQLite")
	scanCmd.Flags().BoolVar(&scanNoHTML, "no-html", false, "Do not write the HTML report")
}

// scanOutcome is what a scan run produced on disk.
type scanOutcome struct {
	Result     *scan.Result
	ReportPath string
	HTMLDir    string
	ScanID     int64
}

func applyScanFlags() {
	if scanOut != "" {
		cfg.Output.Dir = scanOut
	}
	if scanSimSeconds > 0 {
		cfg.Simulation.Seconds = scanSimSeconds
	}
	if scanGapTolerance > 0 {
		cfg.Simulation.GapTolerance = scanGapTolerance
	}
	if scanWorkers > 0 {
		cfg.Scan.Workers = scanWorkers
	}
	if scanNoDB {
		cfg.Output.WriteDB = false
	}
	if scanNoHTML {
		cfg.Output.WriteHTML = false
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanDataDir == "" {
		return fmt.Errorf("--data-dir is required")
	}
	applyScanFlags()

	ctx, cancel := signalContext()
	defer cancel()

	outcome, err := executeScan(ctx, scanDataDir)
	if err != nil {
		return err
	}
	printScanSummary(cmd.OutOrStdout(), outcome)
	return nil
}

func auditOptions() (audit.Options, error) {
	opts := audit.Options{
		SimulationSeconds: cfg.Simulation.Seconds,
		GapTolerance:      cfg.Simulation.GapTolerance,
		Thresholds:        cfg.Anomaly,
	}
	if scanDeclaredDPS != "" {
		declared, err := scan.LoadDeclaredDPS(scanDeclaredDPS)
		if err != nil {
			return opts, err
		}
		logger.Info("Using declared DPS override", zap.String("path", scanDeclaredDPS), zap.Int("units", len(declared)))
		opts.DeclaredDPS = declared
	}
	return opts, nil
}

func newScanner() *scan.Scanner {
	return scan.NewScanner(scan.Config{
		Workers:        cfg.Scan.Workers,
		IgnorePatterns: cfg.Scan.IgnorePatterns,
		MaxFiles:       cfg.Scan.MaxFiles,
		MaxFileBytes:   cfg.Scan.MaxFileBytes,
	})
}

// executeScan runs one scan and writes every configured output.
func executeScan(ctx context.Context, dataDir string) (*scanOutcome, error) {
	opts, err := auditOptions()
	if err != nil {
		return nil, err
	}

	res, err := newScanner().Run(ctx, dataDir, opts)
	if err != nil {
		return nil, err
	}
	outcome := &scanOutcome{Result: res}

	outcome.ReportPath = filepath.Join(cfg.Output.Dir, "report.json")
	if err := report.WriteJSON(outcome.ReportPath, report.FromScan(res)); err != nil {
		return nil, err
	}

	if cfg.Output.WriteHTML {
		outcome.HTMLDir = filepath.Join(cfg.Output.Dir, "html")
		if err := report.WriteHTML(outcome.HTMLDir, res.Units); err != nil {
			return nil, err
		}
	}

	if cfg.Output.WriteDB {
		st, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		defer st.Close()
		sc, err := st.InsertScan(ctx, store.NewScan{
			RunID:             res.RunID,
			DataDir:           res.DataDir,
			Units:             res.Units,
			Skipped:           len(res.Skipped),
			SimulationSeconds: opts.SimulationSeconds,
			GapTolerance:      opts.GapTolerance,
		})
		if err != nil {
			return nil, err
		}
		outcome.ScanID = sc.ID
	}

	logger.Info("Scan complete",
		zap.String("run_id", res.RunID),
		zap.Int("units", len(res.Units)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("duration", res.Duration))
	return outcome, nil
}

// printScanSummary writes the scan result with severity counts colored by
// the configured ui theme.
func printScanSummary(w io.Writer, o *scanOutcome) {
	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))

	total := 0
	bySev := map[anomaly.Severity]int{}
	for _, u := range o.Result.Units {
		total += len(u.Anomalies)
		for sev, n := range anomaly.CountBySeverity(u.Anomalies) {
			bySev[sev] += n
		}
	}
	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("Scanned %d blueprint(s): %d unit(s), %d skipped",
		o.Result.Files, len(o.Result.Units), len(o.Result.Skipped))))
	fmt.Fprintf(w, "Anomalies: %s (%s, %s, %s)\n",
		styles.Bold.Render(fmt.Sprintf("%d", total)),
		styles.Crit.Render(fmt.Sprintf("crit %d", bySev[anomaly.Crit])),
		styles.Warn.Render(fmt.Sprintf("warn %d", bySev[anomaly.Warn])),
		styles.Info.Render(fmt.Sprintf("info %d", bySev[anomaly.Info])))
	fmt.Fprintf(w, "%s %s\n", styles.Muted.Render("Report:"), o.ReportPath)
	if o.HTMLDir != "" {
		fmt.Fprintf(w, "%s   %s\n", styles.Muted.Render("HTML:"), filepath.Join(o.HTMLDir, "index.html"))
	}
	if o.ScanID > 0 {
		fmt.Fprintf(w, "Stored as scan %d (run %s)\n", o.ScanID, o.Result.RunID)
	}
}

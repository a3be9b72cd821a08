package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"simlint/internal/audit"
	"simlint/internal/model"
	"simlint/internal/report"
	"simlint/internal/store"
)

var (
	unitDataDir string
	unitScanDB  string
	unitScanID  int64
	unitJSON    bool
	unitPlain   bool
)

var unitCmd = &cobra.Command{
	Use:   "unit <id-or-name>",
	Short: "Show the analysis of one unit",
	Long: `Looks a unit up by blueprint id or display name (case-insensitive) and prints
its declared stats, computed DPS, simulated shots and anomalies.

By default the unit comes from the latest scan in the configured database.
Use --data-dir to analyse a directory directly without storing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnit,
}

func init() {
	unitCmd.Flags().StringVar(&unitDataDir, "data-dir", "", "Analyse this directory instead of reading the database")
	unitCmd.Flags().StringVar(&unitScanDB, "scan-db", "", "Scan database (default from config)")
	unitCmd.Flags().Int64Var(&unitScanID, "scan", 0, "Scan id (default: latest)")
	unitCmd.Flags().BoolVar(&unitJSON, "json", false, "Print the unit summary as JSON")
	unitCmd.Flags().BoolVar(&unitPlain, "plain", false, "Print Markdown without terminal styling")
}

func runUnit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		u   *audit.UnitSummary
		err error
	)
	if unitDataDir != "" {
		u, err = unitFromDataDir(ctx, unitDataDir, args[0])
	} else {
		u, err = unitFromStore(ctx, args[0])
	}
	if err != nil {
		return err
	}
	return printUnit(cmd.OutOrStdout(), u)
}

func unitFromDataDir(ctx context.Context, dataDir, query string) (*audit.UnitSummary, error) {
	opts, err := auditOptions()
	if err != nil {
		return nil, err
	}
	res, err := newScanner().Run(ctx, dataDir, opts)
	if err != nil {
		return nil, err
	}
	if u := findUnit(res.Units, query); u != nil {
		return u, nil
	}
	return nil, fmt.Errorf("unit not found in data dir: %s", query)
}

func unitFromStore(ctx context.Context, query string) (*audit.UnitSummary, error) {
	path := unitScanDB
	if path == "" {
		path = cfg.DatabasePath()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no scan database at %s (run scan first or pass --data-dir): %w", path, err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	scanID := unitScanID
	if scanID == 0 {
		latest, err := st.LatestScan(ctx)
		if err != nil {
			return nil, err
		}
		scanID = latest.ID
	}
	u, err := st.FindUnit(ctx, scanID, query)
	if err != nil {
		return nil, fmt.Errorf("unit not found in scan %d: %w", scanID, err)
	}
	return u, nil
}

// findUnit matches by id, then display name, then substring of either.
func findUnit(units []audit.UnitSummary, query string) *audit.UnitSummary {
	key := model.NormalizeID(query)
	if key == "" {
		return nil
	}
	for i := range units {
		if model.NormalizeID(units[i].UnitID.ID) == key {
			return &units[i]
		}
	}
	for i := range units {
		if model.NormalizeID(units[i].UnitID.Name) == key {
			return &units[i]
		}
	}
	for i := range units {
		if strings.Contains(model.NormalizeID(units[i].UnitID.ID), key) ||
			strings.Contains(model.NormalizeID(units[i].UnitID.Name), key) {
			return &units[i]
		}
	}
	return nil
}

func printUnit(w io.Writer, u *audit.UnitSummary) error {
	if unitJSON {
		data, err := json.MarshalIndent(u, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return printMarkdown(w, report.UnitMarkdown(u), unitPlain)
}

// printMarkdown renders md with glamour unless plain is set or rendering fails.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if !plain {
		if out, err := report.Render(md, cfg.UI.Theme, cfg.UI.WordWrap); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"simlint/cmd/simlint/ui"
	"simlint/internal/audit"
	"simlint/internal/logging"
	"simlint/internal/report"
	"simlint/internal/store"
)

var (
	browseScanDB string
	browseScanID int64
	browseReport string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a scan interactively",
	Long: `Opens a terminal browser over the units of one scan. Type / to filter by id or
name, Tab to cycle severity filters, Enter for the unit detail.

Reads the latest scan from the database unless --scan or --report is given.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseScanDB, "scan-db", "", "Scan database (default from config)")
	browseCmd.Flags().Int64Var(&browseScanID, "scan", 0, "Scan id (default: latest)")
	browseCmd.Flags().StringVar(&browseReport, "report", "", "Browse a report.json instead of the database")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	title, units, err := loadBrowseUnits(ctx)
	if err != nil {
		return err
	}
	logging.BootDebug("Browsing %d units from %s", len(units), title)
	return ui.Browse(title, units, cfg.UI.Theme, cfg.UI.WordWrap)
}

func loadBrowseUnits(ctx context.Context) (string, []audit.UnitSummary, error) {
	if browseReport != "" {
		doc, err := report.ReadJSON(browseReport)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", browseReport, err)
		}
		return fmt.Sprintf("%s (%d units)", browseReport, len(doc.Units)), doc.Units, nil
	}

	path := browseScanDB
	if path == "" {
		path = cfg.DatabasePath()
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("no scan database at %s (run scan first or pass --report): %w", path, err)
	}
	st, err := store.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer st.Close()

	var sc store.Scan
	if browseScanID != 0 {
		sc, err = st.GetScan(ctx, browseScanID)
	} else {
		sc, err = st.LatestScan(ctx)
	}
	if err != nil {
		return "", nil, err
	}
	units, err := st.ScanUnits(ctx, sc.ID)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("scan %d  %s", sc.ID, sc.DataDir), units, nil
}

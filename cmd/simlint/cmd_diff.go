package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simlint/internal/audit"
	"simlint/internal/diff"
	"simlint/internal/report"
	"simlint/internal/store"
)

var (
	diffOut              string
	diffThreshold        float64
	diffFailOnRegression bool
	diffPlain            bool
	diffDB               string
)

// ErrRegressions is returned with --fail-on-regression.
var ErrRegressions = errors.New("effective DPS regressions found")

var diffCmd = &cobra.Command{
	Use:   "diff [A] [B]",
	Short: "Compare two scans (e.g. before/after a balance patch)",
	Long: `Compares scan A (before) with scan B (after).

Each side may be a report.json file, a scan database (its latest scan is used),
or a scan id in the configured database. With no arguments the two most recent
scans in the configured database are compared.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffOut, "out", "", "Directory to write diff.json")
	diffCmd.Flags().Float64Var(&diffThreshold, "threshold", diff.RegressionThreshold, "Relative DPS drop that counts as a regression")
	diffCmd.Flags().BoolVar(&diffFailOnRegression, "fail-on-regression", false, "Exit non-zero when regressions are found")
	diffCmd.Flags().BoolVar(&diffPlain, "plain", false, "Print Markdown without terminal styling")
	diffCmd.Flags().StringVar(&diffDB, "scan-db", "", "Scan database for id references (default from config)")
}

type diffSide struct {
	Label string
	Units []audit.UnitSummary
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, b, err := resolveDiffSides(ctx, args)
	if err != nil {
		return err
	}
	res := diff.Compare(a.Units, b.Units, diffThreshold)
	res.LabelA, res.LabelB = a.Label, b.Label
	logger.Debug("Diff computed",
		zap.Int("added", len(res.Added)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("regressions", len(res.Regressions)))

	if diffOut != "" {
		if err := os.MkdirAll(diffOut, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", diffOut, err)
		}
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		p := filepath.Join(diffOut, "diff.json")
		if err := os.WriteFile(p, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		logger.Info("Wrote diff", zap.String("path", p))
	}

	if err := printMarkdown(cmd.OutOrStdout(), report.DiffMarkdown(res), diffPlain); err != nil {
		return err
	}
	if diffFailOnRegression && res.HasRegressions() {
		return fmt.Errorf("%w: %d unit(s)", ErrRegressions, len(res.Regressions))
	}
	return nil
}

func resolveDiffSides(ctx context.Context, args []string) (diffSide, diffSide, error) {
	switch len(args) {
	case 2:
		a, err := loadDiffSide(ctx, args[0])
		if err != nil {
			return diffSide{}, diffSide{}, err
		}
		b, err := loadDiffSide(ctx, args[1])
		return a, b, err
	case 0:
		st, err := openDiffStore()
		if err != nil {
			return diffSide{}, diffSide{}, err
		}
		defer st.Close()
		scans, err := st.ListScans(ctx, 2)
		if err != nil {
			return diffSide{}, diffSide{}, err
		}
		if len(scans) < 2 {
			return diffSide{}, diffSide{}, fmt.Errorf("need at least two stored scans to diff, found %d", len(scans))
		}
		a, err := sideFromStore(ctx, st, scans[1].ID)
		if err != nil {
			return diffSide{}, diffSide{}, err
		}
		b, err := sideFromStore(ctx, st, scans[0].ID)
		return a, b, err
	default:
		return diffSide{}, diffSide{}, fmt.Errorf("diff takes zero or two arguments")
	}
}

// loadDiffSide accepts a report.json path, a database path or a scan id.
func loadDiffSide(ctx context.Context, ref string) (diffSide, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		if strings.EqualFold(filepath.Ext(ref), ".json") {
			doc, err := report.ReadJSON(ref)
			if err != nil {
				return diffSide{}, err
			}
			return diffSide{Label: ref, Units: doc.Units}, nil
		}
		st, err := store.Open(ref)
		if err != nil {
			return diffSide{}, err
		}
		defer st.Close()
		latest, err := st.LatestScan(ctx)
		if err != nil {
			return diffSide{}, fmt.Errorf("%s: %w", ref, err)
		}
		side, err := sideFromStore(ctx, st, latest.ID)
		side.Label = fmt.Sprintf("%s (scan %d)", ref, latest.ID)
		return side, err
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return diffSide{}, fmt.Errorf("%q is neither a file nor a scan id", ref)
	}
	st, err := openDiffStore()
	if err != nil {
		return diffSide{}, err
	}
	defer st.Close()
	return sideFromStore(ctx, st, id)
}

func openDiffStore() (*store.Store, error) {
	path := diffDB
	if path == "" {
		path = cfg.DatabasePath()
	}
	return store.Open(path)
}

func sideFromStore(ctx context.Context, st *store.Store, id int64) (diffSide, error) {
	if _, err := st.GetScan(ctx, id); err != nil {
		return diffSide{}, err
	}
	units, err := st.ScanUnits(ctx, id)
	if err != nil {
		return diffSide{}, err
	}
	return diffSide{Label: fmt.Sprintf("scan %d", id), Units: units}, nil
}

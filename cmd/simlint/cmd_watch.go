package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simlint/internal/scan"
	"simlint/internal/watch"
)

var (
	watchDataDir string
	watchFor     time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan whenever blueprints under --data-dir change",
	Long: `Runs a scan, then watches the data directory and rescans after changes settle
(debounce from watch.debounce in the config). Stops on Ctrl+C or after --for.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDataDir, "data-dir", "", "Directory to scan and watch")
	watchCmd.Flags().StringVar(&scanOut, "out", "", "Output directory (default from config)")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "Stop after this long (0 = until interrupted)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchDataDir == "" {
		return fmt.Errorf("--data-dir is required")
	}
	applyScanFlags()

	ctx, cancel := signalContext()
	defer cancel()
	if watchFor > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, watchFor)
		defer stop()
	}
	return watchLoop(ctx, cmd.OutOrStdout(), watchDataDir)
}

// watchLoop scans once, then rescans on every settled batch until ctx ends.
func watchLoop(ctx context.Context, out io.Writer, dataDir string) error {
	dirs, err := scan.ResolveDirs(dataDir)
	if err != nil {
		return err
	}
	rescan := func(ctx context.Context, reason string) {
		outcome, err := executeScan(ctx, dataDir)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Rescan failed", zap.String("reason", reason), zap.Error(err))
			}
			return
		}
		fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), reason)
		printScanSummary(out, outcome)
	}

	rescan(ctx, "initial scan")

	w, err := watch.New(dirs.Data, cfg.GetWatchDebounce(), func(ctx context.Context, paths []string) {
		rescan(ctx, fmt.Sprintf("%d blueprint(s) changed", len(paths)))
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	<-ctx.Done()
	logger.Debug("Watch finished", zap.Int("batches", w.Stats().Batches))
	return nil
}

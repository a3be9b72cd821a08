package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simlint/internal/gamedata"
)

var (
	extractGamedata string
	extractOut      string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract unit blueprints from a gamedata folder or .scd archive",
	Long: `Copies *_unit.bp and *_proj.bp files out of a game install so they can be scanned.

--gamedata accepts the install root (containing gamedata.scd or gamedata/),
a gamedata folder, a units folder, or an .scd/.zip archive.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractGamedata, "gamedata", "", "Path to gamedata folder, gamedata.scd, or install root")
	extractCmd.Flags().StringVar(&extractOut, "out", "extracted_units", "Output directory")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractGamedata == "" {
		return fmt.Errorf("--gamedata is required")
	}
	ctx, cancel := signalContext()
	defer cancel()

	src := gamedata.ResolvePath(extractGamedata)
	logger.Debug("Resolved gamedata source", zap.String("input", extractGamedata), zap.String("source", src))

	res, err := gamedata.Extract(ctx, src, extractOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d unit and %d projectile blueprint(s) to %s\n", res.Units, res.Projectiles, extractOut)
	if res.Capped {
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped at the %d file cap\n", gamedata.MaxExtractFiles)
	}
	return nil
}

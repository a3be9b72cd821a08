package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"simlint/internal/report"
	"simlint/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
	historyDB    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored scans, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum scans to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
	historyCmd.Flags().StringVar(&historyDB, "scan-db", "", "Scan database (default from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := historyDB
	if path == "" {
		path = cfg.DatabasePath()
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	scans, err := st.ListScans(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		if scans == nil {
			scans = []store.Scan{}
		}
		data, err := json.MarshalIndent(scans, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	return printMarkdown(cmd.OutOrStdout(), report.HistoryMarkdown(scans), true)
}

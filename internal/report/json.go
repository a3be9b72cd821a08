// Package report writes scan results as report.json, a static HTML site, and
// Markdown for terminal rendering.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"simlint/internal/audit"
	"simlint/internal/logging"
	"simlint/internal/scan"
)

// Document is the report.json layout.
type Document struct {
	RunID       string              `json:"run_id"`
	DataDir     string              `json:"data_dir"`
	GeneratedAt time.Time           `json:"generated_at"`
	Units       []audit.UnitSummary `json:"units"`
	Skipped     []scan.Skipped      `json:"skipped"`
}

// FromScan builds a document from a scan result.
func FromScan(res *scan.Result) *Document {
	return &Document{
		RunID:       res.RunID,
		DataDir:     res.DataDir,
		GeneratedAt: time.Now().UTC(),
		Units:       res.Units,
		Skipped:     res.Skipped,
	}
}

// WriteJSON writes doc as indented JSON, creating parent directories.
func WriteJSON(path string, doc *Document) error {
	if doc.Units == nil {
		doc.Units = []audit.UnitSummary{}
	}
	if doc.Skipped == nil {
		doc.Skipped = []scan.Skipped{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logging.Report("Wrote %s (%d units)", path, len(doc.Units))
	return nil
}

// ReadJSON loads a report.json written by WriteJSON.
func ReadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &doc, nil
}

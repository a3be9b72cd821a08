package report

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/logging"
	"simlint/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"unitFile": UnitFileName,
	"dps":      func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"secs":     func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).ParseFS(templateFS, "templates/*.html"))

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// UnitFileName is the page name for a unit id. Anything outside [a-z0-9_-]
// becomes an underscore.
func UnitFileName(id string) string {
	name := unsafeFileChars.ReplaceAllString(model.NormalizeID(id), "_")
	if name == "" {
		name = "unit"
	}
	return "unit_" + name + ".html"
}

type anomalyRow struct {
	UnitID   string
	Unit     string
	Severity anomaly.Severity
	Code     string
	Summary  string
	Detail   string
}

type indexPage struct {
	Units []*audit.UnitSummary
}

type anomaliesPage struct {
	Rows []anomalyRow
}

// WriteHTML writes index.html, anomalies.html and one page per unit into dir.
func WriteHTML(dir string, units []audit.UnitSummary) error {
	timer := logging.StartTimer(logging.CategoryReport, "WriteHTML")
	defer timer.Stop()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create html directory: %w", err)
	}

	ptrs := make([]*audit.UnitSummary, len(units))
	var rows []anomalyRow
	for i := range units {
		u := &units[i]
		ptrs[i] = u
		for _, a := range u.Anomalies {
			unitID := a.UnitID
			if unitID == "" {
				unitID = u.UnitID.ID
			}
			rows = append(rows, anomalyRow{
				UnitID:   unitID,
				Unit:     u.DisplayName(),
				Severity: a.Severity,
				Code:     a.Code,
				Summary:  a.Summary,
				Detail:   a.Technical,
			})
		}
	}

	if err := render(filepath.Join(dir, "index.html"), "index.html", indexPage{Units: ptrs}); err != nil {
		return err
	}
	if err := render(filepath.Join(dir, "anomalies.html"), "anomalies.html", anomaliesPage{Rows: rows}); err != nil {
		return err
	}
	for _, u := range ptrs {
		if err := render(filepath.Join(dir, UnitFileName(u.UnitID.ID)), "unit.html", u); err != nil {
			return err
		}
	}
	logging.Report("Wrote HTML report for %d units to %s", len(units), dir)
	return nil
}

func render(path, name string, data interface{}) error {
	var sb strings.Builder
	if err := pages.ExecuteTemplate(&sb, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

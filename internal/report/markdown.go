package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"simlint/internal/audit"
	"simlint/internal/diff"
	"simlint/internal/store"
)

// UnitMarkdown describes one unit for terminal display.
func UnitMarkdown(u *audit.UnitSummary) string {
	var sb strings.Builder
	name := u.UnitID.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(&sb, "# %s (%s)\n\n", u.UnitID.ID, name)
	fmt.Fprintf(&sb, "Blueprint: `%s`\n\n", u.BlueprintPath)
	if u.DeclaredDPSOverride != nil {
		fmt.Fprintf(&sb, "Declared DPS (override): **%.2f**\n\n", *u.DeclaredDPSOverride)
	}

	sb.WriteString("## Declared weapons\n\n")
	sb.WriteString("| Weapon | Damage | Projectiles | ROF | Range |\n|---|---|---|---|---|\n")
	for _, w := range u.Weapons {
		fmt.Fprintf(&sb, "| %s | %g | %d | %g | %g |\n", mdCell(w.ID), w.Damage, w.ProjectilesPerFire, w.RateOfFire, w.Range)
	}

	sb.WriteString("\n## Effective (computed)\n\n")
	sb.WriteString("| Weapon | Nominal DPS | Effective DPS | Cycle (s) |\n|---|---|---|---|\n")
	for i, e := range u.Effective {
		id := ""
		if i < len(u.Weapons) {
			id = u.Weapons[i].ID
		}
		fmt.Fprintf(&sb, "| %s | %.2f | %.2f | %.3f |\n", mdCell(id), e.NominalDPS, e.EffectiveDPS, e.CycleTime)
	}
	fmt.Fprintf(&sb, "\nTotal effective DPS: **%.2f**\n", u.TotalEffectiveDPS())

	if len(u.Shots) > 0 {
		sb.WriteString("\n## Simulated shots\n\n| Weapon | Expected | Actual |\n|---|---|---|\n")
		for _, s := range u.Shots {
			fmt.Fprintf(&sb, "| %s | %d | %d |\n", mdCell(s.ID), s.Expected, s.Actual)
		}
	}

	sb.WriteString("\n## Anomalies\n\n")
	if len(u.Anomalies) == 0 {
		sb.WriteString("None\n")
	}
	for _, a := range u.Anomalies {
		fmt.Fprintf(&sb, "- **[%s] %s**: %s\n  - %s\n", strings.ToUpper(string(a.Severity)), a.Code, a.Summary, a.Technical)
	}
	return sb.String()
}

// DiffMarkdown describes a scan comparison.
func DiffMarkdown(r *diff.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Diff: %s vs %s\n\n", r.LabelA, r.LabelB)
	fmt.Fprintf(&sb, "Units added: %d, removed: %d, common: %d\n\n", len(r.Added), len(r.Removed), r.Common)
	list := func(title, mark string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, id := range ids {
			fmt.Fprintf(&sb, "- %s %s\n", mark, id)
		}
		sb.WriteString("\n")
	}
	list("Added", "+", r.Added)
	list("Removed", "-", r.Removed)

	changes := func(title string, cs []diff.DPSChange) {
		if len(cs) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n| Unit | Before | After | Change |\n|---|---|---|---|\n", title)
		for _, c := range cs {
			fmt.Fprintf(&sb, "| %s | %.2f | %.2f | %+.1f%% |\n", mdCell(c.UnitID), c.Before, c.After, c.Delta()*100)
		}
		sb.WriteString("\n")
	}
	changes("DPS regressions", r.Regressions)
	changes("DPS improvements", r.Improvements)

	if len(r.AnomalyDeltas) > 0 {
		sb.WriteString("## Anomaly count changes\n\n| Unit | Before | After |\n|---|---|---|\n")
		for _, d := range r.AnomalyDeltas {
			fmt.Fprintf(&sb, "| %s | %d | %d |\n", mdCell(d.UnitID), d.Before, d.After)
		}
		sb.WriteString("\n")
	}
	for _, c := range r.Changed {
		fmt.Fprintf(&sb, "### %s\n\n```diff\n%s```\n\n", c.UnitID, diff.Unified(c.Hunks))
	}
	return sb.String()
}

// HistoryMarkdown lists stored scans.
func HistoryMarkdown(scans []store.Scan) string {
	if len(scans) == 0 {
		return "No scans stored.\n"
	}
	var sb strings.Builder
	sb.WriteString("| ID | Run | Created | Units | Anomalies | Data dir |\n|---|---|---|---|---|---|\n")
	for _, s := range scans {
		fmt.Fprintf(&sb, "| %d | %s | %s | %d | %d | %s |\n",
			s.ID, s.RunID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.UnitCount, s.AnomalyCount, mdCell(s.DataDir))
	}
	return sb.String()
}

// Render formats Markdown for the terminal. theme is auto, light or dark;
// width <= 0 disables wrapping.
func Render(markdown, theme string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch theme {
	case "light", "dark":
		opts = append(opts, glamour.WithStandardStyle(theme))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render(markdown)
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/config"
	"simlint/internal/diff"
	"simlint/internal/logging"
	"simlint/internal/model"
	"simlint/internal/scan"
	"simlint/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreAnyFunction("os/signal.loop"),
	)
}

const othuumBP = `UnitBlueprint {
    BlueprintId = 'XSL0303',
    General = { UnitName = '<LOC xsl0303_name>Othuum' },
    Weapon = {
        { Label = 'Rockets', Damage = 40, RateOfFire = 1, SalvoSize = 5, SalvoDelay = 0.2 },
        { Label = 'Cannon', Damage = %DAMAGE%, RateOfFire = 1 },
    },
}`

// setupCLI resets every command global and points output at a temp dir.
func setupCLI(t *testing.T) string {
	t.Helper()
	out := t.TempDir()

	logger = zap.NewNop()
	logging.Initialize(logger, logging.Options{})
	cfg = config.DefaultConfig()
	cfg.Output.Dir = out
	cfg.Scan.Workers = 2

	scanDataDir, scanOut, scanDeclaredDPS = "", "", ""
	scanSimSeconds, scanGapTolerance, scanWorkers = 0, 0, 0
	scanNoDB, scanNoHTML = false, false
	unitDataDir, unitScanDB, unitScanID, unitJSON, unitPlain = "", "", 0, false, true
	diffOut, diffThreshold, diffFailOnRegression, diffPlain, diffDB = "", diff.RegressionThreshold, false, true, ""
	historyLimit, historyJSON, historyDB = 20, false, ""
	browseScanDB, browseScanID, browseReport = "", 0, ""
	configForce = false

	t.Cleanup(logging.Reset)
	return out
}

func dataDir(t *testing.T, cannonDamage string) string {
	t.Helper()
	root := t.TempDir()
	p := filepath.Join(root, "units", "XSL0303", "XSL0303_unit.bp")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(strings.ReplaceAll(othuumBP, "%DAMAGE%", cannonDamage)), 0644))
	return root
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	return c, &buf
}

func TestScanWritesOutputs(t *testing.T) {
	out := setupCLI(t)
	scanDataDir = dataDir(t, "100")

	c, buf := newCmd()
	require.NoError(t, runScan(c, nil))

	assert.Contains(t, buf.String(), "1 unit(s)")
	assert.Contains(t, buf.String(), "Stored as scan 1")
	assert.FileExists(t, filepath.Join(out, "report.json"))
	assert.FileExists(t, filepath.Join(out, "html", "index.html"))
	assert.FileExists(t, filepath.Join(out, "scan.sqlite"))
}

func TestScanRequiresDataDir(t *testing.T) {
	setupCLI(t)
	c, _ := newCmd()
	assert.Error(t, runScan(c, nil))
}

func TestScanFlagsOverrideConfig(t *testing.T) {
	setupCLI(t)
	scanSimSeconds = 12
	scanNoDB = true
	scanNoHTML = true
	applyScanFlags()
	assert.Equal(t, 12.0, cfg.Simulation.Seconds)
	assert.False(t, cfg.Output.WriteDB)
	assert.False(t, cfg.Output.WriteHTML)
	assert.Equal(t, 0.05, cfg.Simulation.GapTolerance, "unset flags keep config values")
}

func TestUnitFromStoreAndDataDir(t *testing.T) {
	setupCLI(t)
	scanDataDir = dataDir(t, "100")
	c, _ := newCmd()
	require.NoError(t, runScan(c, nil))

	c, buf := newCmd()
	require.NoError(t, runUnit(c, []string{"othuum"}))
	assert.Contains(t, buf.String(), "XSL0303")

	unitJSON = true
	c, buf = newCmd()
	require.NoError(t, runUnit(c, []string{"xsl0303"}))
	var u audit.UnitSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &u))
	assert.Equal(t, "Othuum", u.UnitID.Name)
	assert.Len(t, u.Weapons, 2)

	unitDataDir = scanDataDir
	c, _ = newCmd()
	assert.Error(t, runUnit(c, []string{"nothing-like-it"}))
}

func TestFindUnit(t *testing.T) {
	units := []audit.UnitSummary{
		{UnitID: model.UnitID{ID: "UEL0101", Name: "Mech Marine"}},
		{UnitID: model.UnitID{ID: "XSL0303", Name: "Othuum"}},
		{UnitID: model.UnitID{ID: "URL0303", Name: "Loyalist"}},
	}
	tests := []struct {
		query string
		want  string
	}{
		{"xsl0303", "XSL0303"},
		{"othuum", "XSL0303"},
		{"marine", "UEL0101"},
		{"l0303", "XSL0303"},
		{"", ""},
		{"zzz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := findUnit(units, tt.query)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.UnitID.ID)
		})
	}
}

func TestHistoryAndDiffLatestTwo(t *testing.T) {
	setupCLI(t)
	c, _ := newCmd()
	scanDataDir = dataDir(t, "100")
	require.NoError(t, runScan(c, nil))
	scanDataDir = dataDir(t, "50")
	require.NoError(t, runScan(c, nil))

	historyJSON = true
	c, buf := newCmd()
	require.NoError(t, runHistory(c, nil))
	var scans []store.Scan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &scans))
	require.Len(t, scans, 2)
	assert.Equal(t, int64(2), scans[0].ID)

	c, buf = newCmd()
	require.NoError(t, runDiff(c, nil))
	assert.Contains(t, buf.String(), "XSL0303")

	diffFailOnRegression = true
	c, _ = newCmd()
	err := runDiff(c, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegressions))
}

func TestDiffReportFiles(t *testing.T) {
	setupCLI(t)
	c, _ := newCmd()

	before := filepath.Join(t.TempDir(), "before")
	scanOut = before
	scanDataDir = dataDir(t, "50")
	require.NoError(t, runScan(c, nil))

	after := filepath.Join(t.TempDir(), "after")
	scanOut = after
	scanDataDir = dataDir(t, "100")
	require.NoError(t, runScan(c, nil))

	diffOut = t.TempDir()
	diffFailOnRegression = true
	c, buf := newCmd()
	require.NoError(t, runDiff(c, []string{
		filepath.Join(before, "report.json"),
		filepath.Join(after, "report.json"),
	}), "a DPS increase is not a regression")
	assert.Contains(t, buf.String(), "XSL0303")

	data, err := os.ReadFile(filepath.Join(diffOut, "diff.json"))
	require.NoError(t, err)
	var res diff.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Empty(t, res.Regressions)
	require.Len(t, res.Improvements, 1)
	assert.Equal(t, "XSL0303", res.Improvements[0].UnitID)

	c, _ = newCmd()
	assert.Error(t, runDiff(c, []string{"not-a-file-or-id", "also-not"}))
	assert.Error(t, runDiff(c, []string{"only-one"}))
}

func TestExtract(t *testing.T) {
	setupCLI(t)
	extractGamedata = dataDir(t, "100")
	extractOut = filepath.Join(t.TempDir(), "extracted")

	c, buf := newCmd()
	require.NoError(t, runExtract(c, nil))
	assert.Contains(t, buf.String(), "Extracted 1 unit")
	assert.FileExists(t, filepath.Join(extractOut, "units", "XSL0303", "XSL0303_unit.bp"))

	extractGamedata = ""
	assert.Error(t, runExtract(c, nil))
}

func TestConfigInitAndShow(t *testing.T) {
	setupCLI(t)
	configPath = filepath.Join(t.TempDir(), ".simlint", "config.yaml")
	t.Cleanup(func() { configPath = config.DefaultPath })

	c, buf := newCmd()
	require.NoError(t, runConfigInit(c, nil))
	assert.Contains(t, buf.String(), configPath)

	assert.Error(t, runConfigInit(c, nil), "existing file without --force")
	configForce = true
	require.NoError(t, runConfigInit(c, nil))

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Simulation, loaded.Simulation)

	c, buf = newCmd()
	require.NoError(t, runConfigShow(c, nil))
	assert.Contains(t, buf.String(), "simulation:")
	assert.Contains(t, buf.String(), "gap_tolerance: 0.05")
}

func TestBrowseLoadsReport(t *testing.T) {
	out := setupCLI(t)
	scanDataDir = dataDir(t, "100")
	c, _ := newCmd()
	require.NoError(t, runScan(c, nil))

	browseReport = filepath.Join(out, "report.json")
	title, units, err := loadBrowseUnits(t.Context())
	require.NoError(t, err)
	assert.Contains(t, title, "1 units")
	require.Len(t, units, 1)

	browseReport = ""
	title, units, err = loadBrowseUnits(t.Context())
	require.NoError(t, err)
	assert.Contains(t, title, "scan 1")
	require.Len(t, units, 1)
	assert.Equal(t, "XSL0303", units[0].UnitID.ID)
}

func TestBuildLogger(t *testing.T) {
	l, err := buildLogger(config.LoggingConfig{Level: "warn", Format: "json"}, false, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	l, err = buildLogger(config.LoggingConfig{Level: "warn"}, true, false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestPrintScanSummaryCountsSeverities(t *testing.T) {
	setupCLI(t)
	cfg.UI.Theme = "light"
	o := &scanOutcome{
		Result: &scan.Result{
			RunID: "run-1",
			Files: 3,
			Units: []audit.UnitSummary{{
				UnitID: model.UnitID{ID: "XSL0303"},
				Anomalies: []anomaly.Anomaly{
					{Code: anomaly.CodeCadenceInterference, Severity: anomaly.Warn},
					{Code: anomaly.CodeSalvoCooldownPattern, Severity: anomaly.Info},
					{Code: anomaly.CodeSalvoCooldownPattern, Severity: anomaly.Info},
				},
			}},
			Skipped: []scan.Skipped{{Path: "units/BAD/BAD_unit.bp", Reason: "parse error"}},
		},
		ReportPath: "out/report.json",
		ScanID:     7,
	}

	var buf bytes.Buffer
	printScanSummary(&buf, o)
	out := buf.String()
	assert.Contains(t, out, "Scanned 3 blueprint(s): 1 unit(s), 1 skipped")
	assert.Contains(t, out, "crit 0")
	assert.Contains(t, out, "warn 1")
	assert.Contains(t, out, "info 2")
	assert.Contains(t, out, "out/report.json")
	assert.NotContains(t, out, "HTML:")
	assert.Contains(t, out, "Stored as scan 7 (run run-1)")
}

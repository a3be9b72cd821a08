package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "scan.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func unit(id, name string, dps float64, anomalies ...anomaly.Anomaly) audit.UnitSummary {
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}
	return audit.UnitSummary{
		UnitID:        model.UnitID{ID: id, Name: name},
		BlueprintPath: "units/" + id + "/" + id + "_unit.bp",
		Weapons:       []model.WeaponDeclared{{ID: "Gun", Damage: dps, RateOfFire: 1, ProjectilesPerFire: 1}},
		Effective:     []model.WeaponEffective{{NominalDPS: dps, EffectiveDPS: dps, CycleTime: 1, ShotsPerCycle: 1}},
		Anomalies:     anomalies,
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, table := range []string{"scans", "scan_units"} {
		assert.True(t, tableExists(ctx, s.DB(), table), table)
	}
	for _, m := range pendingMigrations {
		assert.True(t, columnExists(ctx, s.DB(), m.Table, m.Column), "%s.%s", m.Table, m.Column)
	}
}

func TestInsertAndReadBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	warn := anomaly.Anomaly{Code: anomaly.CodeCadenceInterference, Severity: anomaly.Warn, WeaponIDs: []string{"Gun"}}
	units := []audit.UnitSummary{
		unit("URL0106", "Hunter", 12.5),
		unit("UEL0201", "MA12 Striker", 30, warn),
	}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sc, err := s.InsertScan(ctx, NewScan{
		DataDir:           "/games/fa",
		Units:             units,
		Skipped:           2,
		SimulationSeconds: 30,
		GapTolerance:      0.05,
		CreatedAt:         created,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sc.RunID)
	assert.Equal(t, 2, sc.UnitCount)
	assert.Equal(t, 1, sc.AnomalyCount)

	got, err := s.GetScan(ctx, sc.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(sc, got); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, got.Summary.BySeverity[anomaly.Warn])
	assert.Equal(t, 2, got.Summary.Skipped)

	stored, err := s.ScanUnits(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	// ordered by unit id
	assert.Equal(t, "UEL0201", stored[0].UnitID.ID)
	assert.Equal(t, "URL0106", stored[1].UnitID.ID)
	if diff := cmp.Diff(units[1], stored[0]); diff != "" {
		t.Errorf("unit mismatch (-want +got):\n%s", diff)
	}
}

func TestListAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestScan(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	var ids []int64
	for i := 0; i < 3; i++ {
		sc, err := s.InsertScan(ctx, NewScan{DataDir: "d", Units: []audit.UnitSummary{unit("A", "", float64(i))}})
		require.NoError(t, err)
		ids = append(ids, sc.ID)
	}

	all, err := s.ListScans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	two, err := s.ListScans(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	latest, err := s.LatestScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)

	_, err = s.GetScan(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDuplicateRunIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.InsertScan(ctx, NewScan{RunID: "run-1", DataDir: "d"})
	require.NoError(t, err)
	_, err = s.InsertScan(ctx, NewScan{RunID: "run-1", DataDir: "d"})
	assert.Error(t, err)

	all, err := s.ListScans(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFindUnit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sc, err := s.InsertScan(ctx, NewScan{DataDir: "d", Units: []audit.UnitSummary{
		unit("URL0106", "Hunter", 10),
		unit("UEL0201", "MA12 Striker", 20),
		unit("XSL0303", "Yenzyne", 30),
	}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"exact id", "UEL0201", "UEL0201"},
		{"id ignores case", "xsl0303", "XSL0303"},
		{"exact name", "hunter", "URL0106"},
		{"substring", "strik", "UEL0201"},
		{"trimmed", "  url0106 ", "URL0106"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.FindUnit(ctx, sc.ID, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.UnitID.ID)
		})
	}

	_, err = s.FindUnit(ctx, sc.ID, "nothing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.FindUnit(ctx, sc.ID, "%")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.FindUnit(ctx, sc.ID, " ")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMigratesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.sqlite")
	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data_dir TEXT NOT NULL,
		created_at TEXT NOT NULL,
		summary_json TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE scan_units (
		scan_id INTEGER NOT NULL,
		unit_id TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		PRIMARY KEY (scan_id, unit_id)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO scans (data_dir, created_at, summary_json) VALUES ('legacy', '2025-01-01T00:00:00Z', '{"units":4}')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for _, m := range pendingMigrations {
		assert.True(t, columnExists(ctx, s.DB(), m.Table, m.Column), "%s.%s", m.Table, m.Column)
	}

	all, err := s.ListScans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "legacy", all[0].DataDir)
	assert.Equal(t, "", all[0].RunID)
	assert.Equal(t, 4, all[0].Summary.Units)

	// re-running is a no-op
	require.NoError(t, RunMigrations(ctx, s.DB()))
}

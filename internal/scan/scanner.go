package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"simlint/internal/audit"
	"simlint/internal/logging"
)

// Config controls discovery and the worker pool.
type Config struct {
	// Workers caps concurrent blueprint analyses.
	Workers int
	// IgnorePatterns skips matching paths or names (relative to the root).
	IgnorePatterns []string
	MaxFiles       int
	MaxFileBytes   int64
}

// DefaultConfig mirrors the shipped config defaults.
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		IgnorePatterns: []string{".git", "__MACOSX", "*_script.lua"},
		MaxFiles:       DefaultMaxFiles,
		MaxFileBytes:   DefaultMaxFileBytes,
	}
}

// Skipped records a blueprint that could not be analysed.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of one scan.
type Result struct {
	RunID     string              `json:"run_id"`
	Dirs      Dirs                `json:"-"`
	DataDir   string              `json:"data_dir"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Files     int                 `json:"files"`
	Units     []audit.UnitSummary `json:"units"`
	Skipped   []Skipped           `json:"skipped"`
}

// Scanner runs audits over a data directory.
type Scanner struct {
	cfg Config
}

func NewScanner(cfg Config) *Scanner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = def.MaxFileBytes
	}
	if cfg.IgnorePatterns == nil {
		cfg.IgnorePatterns = def.IgnorePatterns
	}
	return &Scanner{cfg: cfg}
}

func (s *Scanner) Config() Config { return s.cfg }

// Run scans dataDir. Files that fail bounds checks or parsing are reported in
// Result.Skipped; only I/O errors on the directory itself and context
// cancellation abort the scan. opts.Projectiles is filled from the data
// directory when the caller leaves it nil.
func (s *Scanner) Run(ctx context.Context, dataDir string, opts audit.Options) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryScan, "Scanner.Run")
	defer timer.StopWithInfo()

	dirs, err := ResolveDirs(dataDir)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:     uuid.NewString(),
		Dirs:      dirs,
		DataDir:   dirs.Data,
		StartedAt: time.Now().UTC(),
		Units:     []audit.UnitSummary{},
		Skipped:   []Skipped{},
	}
	logging.Scan("Scan %s: units=%s projectiles=%s workers=%d", res.RunID, dirs.Units, dirs.Projectiles, s.cfg.Workers)

	if opts.Projectiles == nil {
		opts.Projectiles, err = LoadProjectiles(ctx, dirs.Projectiles, s.cfg.IgnorePatterns, s.cfg.MaxFiles, s.cfg.MaxFileBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to load projectiles: %w", err)
		}
	}

	files, err := Discover(ctx, dirs.Units, IsUnitBlueprint, s.cfg.IgnorePatterns, s.cfg.MaxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dirs.Units, err)
	}
	res.Files = len(files)

	summaries := make([]*audit.UnitSummary, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, p := range files {
		if gctx.Err() != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary, err := s.analyzeFile(dirs.Units, p, opts)
			if err != nil {
				logging.ScanWarn("Skipping %s: %v", p, err)
				mu.Lock()
				res.Skipped = append(res.Skipped, Skipped{Path: p, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, u := range summaries {
		if u != nil {
			res.Units = append(res.Units, *u)
		}
	}
	sort.SliceStable(res.Units, func(a, b int) bool {
		return res.Units[a].BlueprintPath < res.Units[b].BlueprintPath
	})
	sort.Slice(res.Skipped, func(a, b int) bool {
		return res.Skipped[a].Path < res.Skipped[b].Path
	})
	res.Duration = time.Since(res.StartedAt)

	logging.Scan("Scan %s finished: %d files, %d units, %d skipped in %s",
		res.RunID, res.Files, len(res.Units), len(res.Skipped), res.Duration)
	return res, nil
}

func (s *Scanner) analyzeFile(root, p string, opts audit.Options) (*audit.UnitSummary, error) {
	if _, err := CheckFileBounds(root, p, s.cfg.MaxFileBytes); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	return audit.Analyze(filepath.ToSlash(rel), string(data), opts)
}

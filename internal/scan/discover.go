// Package scan walks a game-data directory, loads projectile blueprints and
// runs the unit audit over every unit blueprint with a bounded worker pool.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"simlint/internal/logging"
)

const (
	DefaultMaxFiles     = 50000
	DefaultMaxFileBytes = int64(2 * 1024 * 1024)
)

var (
	ErrPathEscapes  = errors.New("path escapes data directory")
	ErrFileTooLarge = errors.New("file too large")
)

// Dirs are the roots a scan reads from. Projectiles is empty when the data
// directory has no projectile blueprints.
type Dirs struct {
	Data        string
	Units       string
	Projectiles string
}

// ResolveDirs picks the unit and projectile roots for dataDir. A directory
// holding units/ uses it (and projectiles/ when present); a directory named
// units pairs with a sibling projectiles/; anything else is scanned as-is.
func ResolveDirs(dataDir string) (Dirs, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return Dirs{}, fmt.Errorf("data directory does not exist: %s: %w", dataDir, err)
	}
	if !info.IsDir() {
		return Dirs{}, fmt.Errorf("data directory is not a directory: %s", dataDir)
	}
	root, err := canonical(dataDir)
	if err != nil {
		return Dirs{}, err
	}

	d := Dirs{Data: root, Units: root}
	if isDir(filepath.Join(root, "units")) {
		d.Units = filepath.Join(root, "units")
		if isDir(filepath.Join(root, "projectiles")) {
			d.Projectiles = filepath.Join(root, "projectiles")
		}
		return d, nil
	}
	if strings.EqualFold(filepath.Base(root), "units") {
		sibling := filepath.Join(filepath.Dir(root), "projectiles")
		if isDir(sibling) {
			d.Projectiles = sibling
		}
	}
	return d, nil
}

// Candidate filters decide which files a walk collects.
type Candidate func(name string) bool

// IsUnitBlueprint matches *_unit.bp and blueprint-style *.lua files.
func IsUnitBlueprint(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "_script.lua") {
		return false
	}
	return strings.HasSuffix(lower, "_unit.bp") || strings.HasSuffix(lower, ".lua")
}

// IsProjectileBlueprint matches *_proj.bp.
func IsProjectileBlueprint(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "_proj.bp")
}

// Discover walks root and returns matching files in lexical order, stopping
// after maxFiles.
func Discover(ctx context.Context, root string, match Candidate, ignore []string, maxFiles int) ([]string, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if isIgnoredRel(rel, d.Name(), ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !match(d.Name()) {
			return nil
		}
		if len(out) >= maxFiles {
			logging.ScanWarn("File cap %d reached under %s, remaining files ignored", maxFiles, root)
			return filepath.SkipAll
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// CheckFileBounds verifies that path resolves inside root and is at most
// maxBytes long. It returns the file size.
func CheckFileBounds(root, p string, maxBytes int64) (int64, error) {
	resolved, err := canonical(p)
	if err != nil {
		return 0, err
	}
	rootResolved, err := canonical(root)
	if err != nil {
		return 0, err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, ErrPathEscapes
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return 0, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return info.Size(), fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), maxBytes)
	}
	return info.Size(), nil
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a path relative to the walk root matches any
// pattern. Globs are tried against both the relative path and the base name.
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if ok, _ := path.Match(strings.ToLower(p), strings.ToLower(name)); ok {
				return true
			}
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// Package gamedata copies unit and projectile blueprints out of a game
// install, either from an unpacked gamedata folder or from a .scd archive
// (a plain zip file).
package gamedata

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"simlint/internal/logging"
)

// MaxExtractFiles caps how many blueprints one extraction writes.
const MaxExtractFiles = 10000

const (
	unitSuffix       = "_unit.bp"
	projectileSuffix = "_proj.bp"
)

var ErrNoUnits = errors.New("no units folder found")

// Result counts extracted files.
type Result struct {
	Source      string
	Units       int
	Projectiles int
	Skipped     int
	Capped      bool
}

func (r Result) Total() int { return r.Units + r.Projectiles }

// ResolvePath turns an install root into the gamedata source: gamedata.scd
// when present, otherwise a gamedata/ folder, otherwise p itself.
func ResolvePath(p string) string {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if info, err := os.Stat(filepath.Join(p, "gamedata.scd")); err == nil && !info.IsDir() {
		return filepath.Join(p, "gamedata.scd")
	}
	if info, err := os.Stat(filepath.Join(p, "gamedata")); err == nil && info.IsDir() {
		return filepath.Join(p, "gamedata")
	}
	return p
}

// Extract writes blueprints from src into outDir, keeping their relative
// layout under units/ and projectiles/ so the output can be scanned directly.
func Extract(ctx context.Context, src, outDir string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryExtract, "gamedata.Extract")
	defer timer.StopWithInfo()

	res := Result{Source: src}
	info, err := os.Stat(src)
	if err != nil {
		return res, fmt.Errorf("gamedata source: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return res, fmt.Errorf("failed to create output directory: %w", err)
	}

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(src))
		if ext != ".scd" && ext != ".zip" {
			return res, fmt.Errorf("gamedata path is a file but not .scd or .zip: %s", src)
		}
		err = extractArchive(ctx, src, outDir, &res)
	} else {
		err = extractDir(ctx, src, outDir, &res)
	}
	if err != nil {
		return res, err
	}
	logging.Extract("Extracted %d unit and %d projectile blueprint(s) from %s (skipped %d)",
		res.Units, res.Projectiles, src, res.Skipped)
	return res, nil
}

func extractDir(ctx context.Context, src, outDir string, res *Result) error {
	var unitsRoot string
	for _, candidate := range []string{
		filepath.Join(src, "units"),
		filepath.Join(src, "gamedata", "units"),
	} {
		if isDir(candidate) {
			unitsRoot = candidate
			break
		}
	}
	if unitsRoot == "" && strings.EqualFold(filepath.Base(src), "units") {
		unitsRoot = src
	}
	if unitsRoot == "" {
		return fmt.Errorf("%w under %s (expected gamedata/units, a units folder, or .scd/.zip)", ErrNoUnits, src)
	}

	if err := copyTree(ctx, unitsRoot, filepath.Join(outDir, "units"), unitSuffix, &res.Units, res); err != nil {
		return err
	}
	projRoot := filepath.Join(filepath.Dir(unitsRoot), "projectiles")
	if isDir(projRoot) {
		return copyTree(ctx, projRoot, filepath.Join(outDir, "projectiles"), projectileSuffix, &res.Projectiles, res)
	}
	return nil
}

func copyTree(ctx context.Context, root, dest, suffix string, counter *int, res *Result) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			return nil
		}
		if res.Total() >= MaxExtractFiles {
			res.Capped = true
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := copyFile(p, filepath.Join(dest, rel)); err != nil {
			return err
		}
		*counter++
		return nil
	})
}

func extractArchive(ctx context.Context, src, outDir string, res *Result) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		lower := strings.ToLower(name)
		var counter *int
		switch {
		case strings.HasSuffix(lower, unitSuffix):
			counter = &res.Units
		case strings.HasSuffix(lower, projectileSuffix):
			counter = &res.Projectiles
		default:
			continue
		}
		rel, ok := safeArchivePath(name)
		if !ok {
			logging.ExtractWarn("Skipping unsafe archive entry %q", name)
			res.Skipped++
			continue
		}
		if res.Total() >= MaxExtractFiles {
			res.Capped = true
			logging.ExtractWarn("Extraction cap %d reached", MaxExtractFiles)
			break
		}
		if err := writeEntry(f, filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
		*counter++
	}
	return nil
}

// safeArchivePath returns the entry path from its units/ or projectiles/
// component onward. Entries with backslashes, absolute or parent-relative
// paths and macOS resource forks are rejected.
func safeArchivePath(name string) (string, bool) {
	if strings.Contains(name, `\`) || strings.Contains(name, "__MACOSX") {
		return "", false
	}
	if strings.HasPrefix(name, "/") || path.IsAbs(name) {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	clean := path.Clean(name)
	parts := strings.Split(clean, "/")
	for i, part := range parts {
		switch strings.ToLower(part) {
		case "units", "projectiles":
			if i < len(parts)-1 {
				return strings.ToLower(part) + "/" + strings.Join(parts[i+1:], "/"), true
			}
		}
	}
	return "", false
}

func writeEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	// cap each entry at the blueprint size limit plus slack
	if _, err := io.Copy(out, io.LimitReader(rc, 8<<20)); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return out.Close()
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

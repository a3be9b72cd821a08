package scan

import (
	"context"
	"os"
	"path/filepath"

	"simlint/internal/blueprint"
	"simlint/internal/logging"
	"simlint/internal/model"
)

// LoadProjectiles parses every *_proj.bp under dir into a lookup keyed
// "projectiles/<relative path>". Unreadable or invalid files are skipped.
func LoadProjectiles(ctx context.Context, dir string, ignore []string, maxFiles int, maxBytes int64) (model.ProjectileLookup, error) {
	lookup := model.ProjectileLookup{}
	if dir == "" {
		return lookup, nil
	}
	timer := logging.StartTimer(logging.CategoryScan, "LoadProjectiles")
	defer timer.Stop()

	files, err := Discover(ctx, dir, IsProjectileBlueprint, ignore, maxFiles)
	if err != nil {
		return nil, err
	}
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := CheckFileBounds(dir, p, maxBytes); err != nil {
			logging.ScanDebug("Skipping projectile %s: %v", p, err)
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			logging.ScanDebug("Skipping projectile %s: %v", p, err)
			continue
		}
		root, err := blueprint.Parse(string(data))
		if err != nil {
			logging.ScanDebug("Skipping projectile %s: %v", p, err)
			continue
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			continue
		}
		lookup[model.ProjectileKey("projectiles/"+filepath.ToSlash(rel))] = model.ProjectileFromTree(root)
	}
	logging.Scan("Loaded %d projectile blueprint(s) from %s", len(lookup), dir)
	return lookup, nil
}

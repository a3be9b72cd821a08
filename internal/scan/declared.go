package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"simlint/internal/model"
)

// LoadDeclaredDPS reads a map of unit id to declared DPS. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON. Non-numeric values
// are ignored and ids are normalized.
func LoadDeclaredDPS(p string) (map[string]float64, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read declared DPS file: %w", err)
	}

	raw := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse declared DPS file %s: %w", p, err)
	}

	out := make(map[string]float64, len(raw))
	for id, v := range raw {
		var dps float64
		switch n := v.(type) {
		case float64:
			dps = n
		case int:
			dps = float64(n)
		case int64:
			dps = float64(n)
		default:
			continue
		}
		out[model.NormalizeID(id)] = dps
	}
	return out, nil
}

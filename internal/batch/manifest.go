package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one model in the output manifest.
type ManifestEntry struct {
	Name        string   `json:"name"`
	Meshes      int      `json:"meshes,omitempty"`
	Added       int      `json:"added,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// WriteManifest writes manifest.json to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:        r.Name,
			Meshes:      r.Meshes,
			Added:       r.Added,
			Outputs:     r.Outputs,
			Diagnostics: r.Diagnostics,
			Error:       r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

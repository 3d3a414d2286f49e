package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataEnvVar names the environment variable that overrides the dataset source.
const DataEnvVar = "KERRIGAN_DATA"

// DatasetFileName is the resource name the dashboard fetches relative to the
// application root.
const DatasetFileName = "graph_data.json"

// PreferredLocations lists where a local dataset is looked up, in order.
var PreferredLocations = []string{
	DatasetFileName,
	filepath.Join("public", DatasetFileName),
	filepath.Join("data", DatasetFileName),
}

// IsRemote reports whether the source is fetched over HTTP.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ResolveSource picks the dataset source. An explicit value wins, then the
// KERRIGAN_DATA environment variable, then the first non-empty file from
// PreferredLocations under root (cwd if empty).
func ResolveSource(explicit, root string) (string, error) {
	if s := strings.TrimSpace(explicit); s != "" {
		return s, nil
	}
	if env := strings.TrimSpace(os.Getenv(DataEnvVar)); env != "" {
		return env, nil
	}

	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}

	for _, rel := range PreferredLocations {
		path := filepath.Join(root, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() > 0 {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s found under %s (set %s or pass -data)", DatasetFileName, root, DataEnvVar)
}

// JoinURL resolves the dataset resource against an application base URL.
func JoinURL(base string) string {
	if strings.HasSuffix(base, ".json") {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + DatasetFileName
}

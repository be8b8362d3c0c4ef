// Package workdir manages the scratch directory that holds result files.
package workdir

import (
	"fmt"
	"os"
)

// Clear removes path and everything below it, then recreates it empty.
// It is idempotent.
func Clear(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clear results dir %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create results dir %s: %w", path, err)
	}
	return nil
}

// Entries lists the names left in path. A missing directory has no entries.
func Entries(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results dir %s: %w", path, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

package harness

import (
	"fmt"
	"os"
	"path/filepath"
)

// ApplyTarget returns the one channel of s whose baseline may be rewritten
// in apply mode: the first configured channel with a baseline in the order
// stdout, stderr, generated. Mismatches on any other channel still fail.
func ApplyTarget(s *Scenario) (Channel, bool) {
	for _, ch := range channelOrder {
		if spec := s.Spec(ch); spec != nil && spec.Expected != "" {
			return ch, true
		}
	}
	return "", false
}

// rewriteBaseline overwrites the baseline at path with content as given.
func rewriteBaseline(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("rewrite baseline: %w", err)
	}
	return nil
}

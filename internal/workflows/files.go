package workflows

import (
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/utils"
)

// readFile reads a whole file as UTF-8 text.
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// writeFile atomically replaces a file's content.
func writeFile(path, content string) error {
	if err := utils.WriteFileAtomic(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

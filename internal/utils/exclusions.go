package utils

import (
	"bufio"
	"os"
	"strings"
)

// Exclusions holds source usernames that should never be synced
type Exclusions struct {
	names map[string]struct{}
}

// LoadExclusions loads excluded usernames from a file, one per line.
// Lines starting with # are comments.
func LoadExclusions(path string) (*Exclusions, error) {
	// If file doesn't exist, return empty exclusion list
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Exclusions{names: map[string]struct{}{}}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	names := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" && !strings.HasPrefix(name, "#") {
			names[strings.ToLower(name)] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Exclusions{names: names}, nil
}

// IsExcluded checks if a username is on the exclusion list (case-insensitive)
func (e *Exclusions) IsExcluded(name string) bool {
	_, ok := e.names[strings.ToLower(name)]
	return ok
}

package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a YAML rate table keyed by base model name:
//
//	gpt-4o:
//	  prompt: 0.0025
//	  completion: 0.01
func LoadTable(path string) (map[string]Rate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table %q: %w", path, err)
	}

	var table map[string]Rate
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rate table %q: %w", path, err)
	}
	return table, nil
}

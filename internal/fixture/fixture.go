// Package fixture loads the static records tests are parameterised with.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no file backs the requested fixture.
var ErrNotFound = errors.New("fixture not found")

// extensions are tried in order for a name given without one.
var extensions = []string{".json", ".yaml", ".yml"}

// Example is the record stored in example.json.
type Example struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
	Body  string `yaml:"body,omitempty" json:"body,omitempty"`
}

// Path returns the file backing fixture name in dir. A name carrying its own
// extension is used as is.
func Path(dir, name string) (string, error) {
	candidates := []string{filepath.Join(dir, name)}
	if filepath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, filepath.Join(dir, name+ext))
		}
	}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
}

// Load decodes fixture name from dir into out. JSON files honour json tags
// and YAML files yaml tags.
func Load(dir, name string, out interface{}) error {
	path, err := Path(dir, name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fixture: %w", err)
	}
	if err := decode(path, data, out); err != nil {
		return fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return nil
}

func decode(path string, data []byte, out interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, out)
	}
	return yaml.Unmarshal(data, out)
}

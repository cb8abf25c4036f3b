// Package presets persists named filter configurations as a TOML file next to
// the snapshot database.
package presets

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/apetrov-dev/piutop/internal/model"
)

type file struct {
	Presets map[string]model.FilterSpec `toml:"presets"`
}

// Load reads all saved presets. A missing file is an empty preset set.
func Load(path string) (map[string]model.FilterSpec, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]model.FilterSpec{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if f.Presets == nil {
		f.Presets = map[string]model.FilterSpec{}
	}
	return f.Presets, nil
}

// Save writes a preset under the given name, replacing any previous one.
func Save(path, name string, spec model.FilterSpec) error {
	all, err := Load(path)
	if err != nil {
		return err
	}
	all[name] = spec
	return write(path, all)
}

// Delete removes a named preset. Deleting an unknown name is an error.
func Delete(path, name string) error {
	all, err := Load(path)
	if err != nil {
		return err
	}
	if _, ok := all[name]; !ok {
		return fmt.Errorf("no preset named %q", name)
	}
	delete(all, name)
	return write(path, all)
}

// Names lists saved preset names in order.
func Names(path string) ([]string, error) {
	all, err := Load(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func write(path string, all map[string]model.FilterSpec) error {
	data, err := toml.Marshal(file{Presets: all})
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write presets: %w", err)
	}
	return nil
}

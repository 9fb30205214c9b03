package main

import (
	"fmt"
	"os"

	"noteforge/module"
)

func loadModuleFile(path string) (*module.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notectl: reading %s: %w", path, err)
	}
	m, err := module.Load(data)
	if err != nil {
		return nil, fmt.Errorf("notectl: loading %s: %w", path, err)
	}
	return m, nil
}

func saveModuleFile(path string, m *module.Module) error {
	data, err := m.Save()
	if err != nil {
		return fmt.Errorf("notectl: saving: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("notectl: writing %s: %w", path, err)
	}
	return nil
}

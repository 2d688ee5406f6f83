package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PrivilegeDef describes one known privilege name.
type PrivilegeDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// MinAccessLevel is the account access level required to grant or
	// revoke this privilege for someone else.
	MinAccessLevel int16 `yaml:"min_access_level"`
	// Default privileges are granted to every session at login.
	Default bool `yaml:"default"`
}

// PrivilegeTable holds all privilege definitions indexed by name.
type PrivilegeTable struct {
	defs map[string]*PrivilegeDef
}

// Get returns a definition by name, or nil if unknown.
func (t *PrivilegeTable) Get(name string) *PrivilegeDef {
	return t.defs[name]
}

// Count returns the number of definitions loaded.
func (t *PrivilegeTable) Count() int {
	return len(t.defs)
}

// Defaults returns all definitions marked as default grants.
func (t *PrivilegeTable) Defaults() []*PrivilegeDef {
	var out []*PrivilegeDef
	for _, def := range t.defs {
		if def.Default {
			out = append(out, def)
		}
	}
	return out
}

type privilegeListFile struct {
	Privileges []PrivilegeDef `yaml:"privileges"`
}

// LoadPrivilegeTable loads privilege definitions from a YAML file.
func LoadPrivilegeTable(path string) (*PrivilegeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read privilege_list: %w", err)
	}
	var f privilegeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse privilege_list: %w", err)
	}

	t := &PrivilegeTable{defs: make(map[string]*PrivilegeDef, len(f.Privileges))}
	for i := range f.Privileges {
		def := &f.Privileges[i]
		if def.Name == "" {
			return nil, fmt.Errorf("privilege_list: entry %d has no name", i)
		}
		if _, dup := t.defs[def.Name]; dup {
			return nil, fmt.Errorf("privilege_list: duplicate privilege %q", def.Name)
		}
		t.defs[def.Name] = def
	}
	return t, nil
}

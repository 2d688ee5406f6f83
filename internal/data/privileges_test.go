package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeList(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "privilege_list.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPrivilegeTable(t *testing.T) {
	path := writeList(t, `
privileges:
  - name: chat.global
    description: "Global chat"
    min_access_level: 1
    default: true
  - name: gm.teleport
    min_access_level: 50
`)
	table, err := LoadPrivilegeTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("count = %d", table.Count())
	}
	def := table.Get("gm.teleport")
	if def == nil || def.MinAccessLevel != 50 || def.Default {
		t.Fatalf("gm.teleport = %+v", def)
	}
	if table.Get("nope") != nil {
		t.Fatalf("unknown privilege resolved")
	}

	defaults := table.Defaults()
	if len(defaults) != 1 || defaults[0].Name != "chat.global" {
		t.Fatalf("defaults = %+v", defaults)
	}
}

func TestLoadPrivilegeTableRejectsDuplicates(t *testing.T) {
	path := writeList(t, `
privileges:
  - name: chat.global
  - name: chat.global
`)
	if _, err := LoadPrivilegeTable(path); err == nil {
		t.Fatal("want duplicate error")
	}
}

func TestLoadPrivilegeTableRejectsUnnamed(t *testing.T) {
	path := writeList(t, `
privileges:
  - description: "no name"
`)
	if _, err := LoadPrivilegeTable(path); err == nil {
		t.Fatal("want missing-name error")
	}
}

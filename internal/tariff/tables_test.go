package tariff

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestProviderReloadSkipsStoreFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "current.json", `{"EG05":{"A":3300,"B":3475}}`)
	writeTestFile(t, dir, "users.json", `{"version":1,"users":[]}`)
	writeTestFile(t, dir, "invites.json", `{"version":1,"invites":[]}`)
	writeTestFile(t, dir, "notes.txt", "not a table")

	p := NewProvider(dir, []string{"users.json", "invites.json"}, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	keys := p.ListTableKeys()
	if len(keys) != 1 || keys[0] != "current" {
		t.Fatalf("expected only 'current', got %v", keys)
	}
}

func TestProviderReloadWrapperFormat(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "april2025.json", `{"table":{"EG05":{"B":3475}},"atMin":{"AT1":5100}}`)

	p := NewProvider(dir, nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	entry, ok := p.GetEntry("april2025")
	if !ok {
		t.Fatalf("expected april2025 entry")
	}
	group, ok := entry.Table["EG05"]
	if !ok {
		t.Fatalf("expected EG05 in table")
	}
	if v, _ := group.Step("B"); v != 3475 {
		t.Fatalf("expected EG05.B 3475, got %v", v)
	}
	if entry.AtMin["AT1"] != 5100 {
		t.Fatalf("expected atMin AT1 5100, got %v", entry.AtMin["AT1"])
	}
}

func TestProviderReloadSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "good.json", `{"EG05":{"B":3475}}`)
	writeTestFile(t, dir, "broken.json", `{not json`)

	p := NewProvider(dir, nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	if p.GetTable("good") == nil {
		t.Fatalf("expected good table to load")
	}
	if _, ok := p.GetEntry("broken"); ok {
		t.Fatalf("expected broken table to be skipped")
	}
}

func TestProviderFallbackToCurrent(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3475}}`)

	p := NewProvider(dir, nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	if p.GetTable("does-not-exist") == nil {
		t.Fatalf("expected fallback to the current table")
	}
}

func TestProviderCanonicalKeyOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "april2026.json", `{"EG05":{"B":3583}}`)
	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3475}}`)
	writeTestFile(t, dir, "mai2024.json", `{"EG05":{"B":3400}}`)
	writeTestFile(t, dir, "april2025.json", `{"EG05":{"B":3475}}`)

	p := NewProvider(dir, nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	want := []string{"mai2024", "april2025", "april2026", "current"}
	if got := p.ListTableKeys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestProviderMeta(t *testing.T) {
	dir := t.TempDir()
	content := `{"EG05":{"B":3475}}`
	writeTestFile(t, dir, "current.json", content)

	p := NewProvider(dir, nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	meta := p.Meta()
	m, ok := meta["current"]
	if !ok {
		t.Fatalf("expected meta for current")
	}
	if m.Bytes != int64(len(content)) {
		t.Fatalf("expected %d bytes, got %d", len(content), m.Bytes)
	}
	if m.ModTime == 0 {
		t.Fatalf("expected nonzero mtime")
	}
}

func TestProviderPicksUpEditedTableOnAccess(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3475}}`)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProvider(dir, nil, nil).WithClock(func() time.Time { return current })
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3583}}`)
	// Force a distinct mtime in case the rewrite lands in the same tick.
	edited := time.Now().Add(5 * time.Second)
	if err := os.Chtimes(filepath.Join(dir, "current.json"), edited, edited); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	current = current.Add(2 * time.Second)
	table := p.GetTable("current")
	if table == nil {
		t.Fatalf("expected table after edit")
	}
	if v, _ := table["EG05"].Step("B"); v != 3583 {
		t.Fatalf("expected edited value 3583, got %v", v)
	}
}

func TestProviderPicksUpAddedAndRemovedTables(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3475}}`)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProvider(dir, nil, nil).WithClock(func() time.Time { return current })
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	writeTestFile(t, dir, "april2026.json", `{"EG05":{"B":3583}}`)
	current = current.Add(2 * time.Second)
	if keys := p.ListTableKeys(); !reflect.DeepEqual(keys, []string{"april2026", "current"}) {
		t.Fatalf("expected new table to appear on access, got %v", keys)
	}

	if err := os.Remove(filepath.Join(dir, "april2026.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	current = current.Add(2 * time.Second)
	if keys := p.ListTableKeys(); !reflect.DeepEqual(keys, []string{"current"}) {
		t.Fatalf("expected removed table to disappear, got %v", keys)
	}
}

func TestProviderThrottlesStaleChecks(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "current.json", `{"EG05":{"B":3475}}`)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProvider(dir, nil, nil).WithClock(func() time.Time { return current })
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	writeTestFile(t, dir, "april2026.json", `{"EG05":{"B":3583}}`)

	// Inside the check interval the previous set stays active.
	if keys := p.ListTableKeys(); !reflect.DeepEqual(keys, []string{"current"}) {
		t.Fatalf("expected throttled access to serve the previous set, got %v", keys)
	}

	current = current.Add(2 * time.Second)
	if keys := p.ListTableKeys(); !reflect.DeepEqual(keys, []string{"april2026", "current"}) {
		t.Fatalf("expected stale check after the interval, got %v", keys)
	}
}

func TestProviderEmptyDirIsLegal(t *testing.T) {
	p := NewProvider(t.TempDir(), nil, nil)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if keys := p.ListTableKeys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
	if p.GetTable("anything") != nil {
		t.Fatalf("expected nil table from empty provider")
	}
}

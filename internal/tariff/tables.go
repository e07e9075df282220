package tariff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
)

// tariffOrder pins the canonical ordering of the known table keys; unknown
// keys sort lexicographically after them.
var tariffOrder = []string{"mai2024", "april2025", "april2026"}

// fallbackKey is consulted when the requested table key is unknown.
const fallbackKey = "current"

// reloadCheckInterval bounds how often accessors stat the table files; edits
// become visible on the next access after the interval elapses.
const reloadCheckInterval = time.Second

// Provider loads tariff tables from JSON files in the data directory. Every
// *.json file except the store documents contributes one table keyed by its
// base name.
type Provider struct {
	mu      sync.RWMutex
	dir     string
	exclude map[string]struct{}
	logger  *zap.Logger

	entries map[string]domain.TableEntry
	meta    map[string]domain.TableMeta

	now       func() time.Time
	lastCheck time.Time
}

// NewProvider constructs a provider over dir, skipping the supplied store
// file names. Call Reload to populate it.
func NewProvider(dir string, excludeFiles []string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	exclude := make(map[string]struct{}, len(excludeFiles))
	for _, name := range excludeFiles {
		exclude[name] = struct{}{}
	}
	return &Provider{
		dir:     dir,
		exclude: exclude,
		logger:  logger,
		entries: make(map[string]domain.TableEntry),
		meta:    make(map[string]domain.TableMeta),
		now:     time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	if now != nil {
		p.now = now
	}
	return p
}

// Reload re-reads every table file. Individual unreadable files are logged
// and skipped; an empty result set is legal but warned about.
func (p *Provider) Reload() error {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	names, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}

	entries := make(map[string]domain.TableEntry)
	meta := make(map[string]domain.TableMeta)

	for _, dirEntry := range names {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, skip := p.exclude[name]; skip {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		full := filepath.Join(p.dir, name)

		entry, info, err := loadTableFile(full)
		if err != nil {
			p.logger.Error("failed to load tariff table", zap.String("file", name), zap.Error(err))
			continue
		}

		entries[key] = *entry
		meta[key] = domain.TableMeta{ModTime: info.ModTime().UnixMilli(), Bytes: info.Size()}
	}

	if len(entries) == 0 {
		p.logger.Warn("no tariff tables found, empty set active")
	}

	p.mu.Lock()
	p.entries = entries
	p.meta = meta
	p.lastCheck = p.now()
	p.mu.Unlock()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	p.logger.Info("tariff tables loaded", zap.Strings("keys", keys))
	return nil
}

func loadTableFile(path string) (*domain.TableEntry, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	// Table files come in two shapes: a bare table object, or a wrapper
	// {table: {...}, atMin: {...}}.
	var wrapper struct {
		Table json.RawMessage    `json:"table"`
		AtMin map[string]float64 `json:"atMin"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Table) > 0 {
		var table domain.TariffTable
		if err := json.Unmarshal(wrapper.Table, &table); err != nil {
			return nil, nil, fmt.Errorf("parse table: %w", err)
		}
		return &domain.TableEntry{Table: table, AtMin: wrapper.AtMin}, info, nil
	}

	var table domain.TariffTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, nil, fmt.Errorf("parse table: %w", err)
	}
	return &domain.TableEntry{Table: table}, info, nil
}

// maybeReload stats the table files and re-reads them when any table was
// added, removed or touched since the last load. Checks are throttled to one
// per reloadCheckInterval so hot paths stay cheap.
func (p *Provider) maybeReload() {
	now := p.now()

	p.mu.Lock()
	if now.Sub(p.lastCheck) < reloadCheckInterval {
		p.mu.Unlock()
		return
	}
	p.lastCheck = now
	stale := p.staleLocked()
	p.mu.Unlock()

	if !stale {
		return
	}
	if err := p.Reload(); err != nil {
		p.logger.Error("tariff table reload failed, keeping previous set", zap.Error(err))
	}
}

// staleLocked compares the on-disk table files against the loaded metadata.
// Caller holds the write lock.
func (p *Provider) staleLocked() bool {
	names, err := os.ReadDir(p.dir)
	if err != nil {
		return false
	}

	seen := 0
	for _, dirEntry := range names {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, skip := p.exclude[name]; skip {
			continue
		}

		seen++
		info, err := os.Stat(filepath.Join(p.dir, name))
		if err != nil {
			return true
		}
		m, ok := p.meta[strings.TrimSuffix(name, ".json")]
		if !ok || m.ModTime != info.ModTime().UnixMilli() || m.Bytes != info.Size() {
			return true
		}
	}
	return seen != len(p.meta)
}

// GetEntry resolves the table entry for key, falling back to "current".
func (p *Provider) GetEntry(key string) (*domain.TableEntry, bool) {
	p.maybeReload()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if entry, ok := p.entries[key]; ok {
		return &entry, true
	}
	if entry, ok := p.entries[fallbackKey]; ok {
		return &entry, true
	}
	return nil, false
}

// GetTable resolves the tariff table for key, falling back to "current".
// Returns nil when neither exists.
func (p *Provider) GetTable(key string) domain.TariffTable {
	entry, ok := p.GetEntry(key)
	if !ok {
		return nil
	}
	return entry.Table
}

// ListTableKeys returns all loaded keys in canonical tariff order; keys
// outside the canonical list sort lexicographically behind it.
func (p *Provider) ListTableKeys() []string {
	p.maybeReload()

	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.entries))
	for key := range p.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ia := orderIndex(keys[i])
		ib := orderIndex(keys[j])
		switch {
		case ia != -1 && ib != -1:
			return ia < ib
		case ia != -1:
			return true
		case ib != -1:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Meta returns the provenance metadata for every loaded table.
func (p *Provider) Meta() map[string]domain.TableMeta {
	p.maybeReload()

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]domain.TableMeta, len(p.meta))
	for key, m := range p.meta {
		out[key] = m
	}
	return out
}

func orderIndex(key string) int {
	for i, candidate := range tariffOrder {
		if candidate == key {
			return i
		}
	}
	return -1
}

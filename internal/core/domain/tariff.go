package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PayGroup holds the base values for one pay grade ("Entgeltgruppe"). A grade
// either carries a single salary (trainee grades) or a set of steps keyed by
// step letter.
type PayGroup struct {
	Salary *float64
	Steps  map[string]float64
}

// HasSalary reports whether the grade is unstepped.
func (g PayGroup) HasSalary() bool {
	return g.Salary != nil
}

// Step returns the base value for the supplied step letter.
func (g PayGroup) Step(name string) (float64, bool) {
	v, ok := g.Steps[name]
	return v, ok
}

// DefaultStep returns the lexicographically first step letter, used when a
// request omits the step for a stepped grade.
func (g PayGroup) DefaultStep() string {
	if len(g.Steps) == 0 {
		return ""
	}
	names := make([]string, 0, len(g.Steps))
	for name := range g.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

// UnmarshalJSON accepts either {"salary": n} or {"A": n, "B": n, ...}.
func (g *PayGroup) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("pay group must map steps to numbers: %w", err)
	}
	if salary, ok := raw["salary"]; ok {
		g.Salary = &salary
		g.Steps = nil
		return nil
	}
	g.Salary = nil
	g.Steps = raw
	return nil
}

// MarshalJSON renders the group back into its persisted shape.
func (g PayGroup) MarshalJSON() ([]byte, error) {
	if g.Salary != nil {
		return json.Marshal(map[string]float64{"salary": *g.Salary})
	}
	return json.Marshal(g.Steps)
}

// TariffTable maps pay grade names (EG01..., AJ1...) to their base values.
type TariffTable map[string]PayGroup

// TableEntry bundles a tariff table with its optional AT minimum values as
// loaded from a single table file.
type TableEntry struct {
	Table TariffTable        `json:"table"`
	AtMin map[string]float64 `json:"atMin,omitempty"`
}

// TableMeta describes the on-disk provenance of a loaded table.
type TableMeta struct {
	ModTime int64 `json:"mtimeMs"`
	Bytes   int64 `json:"bytes"`
}

package tariff

import (
	"fmt"
	"math"
	"strings"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
)

// TZugBPeriod selects which percentage and base table apply for the T-ZUG B
// component.
type TZugBPeriod string

const (
	TZugBUntil2025 TZugBPeriod = "until2025"
	TZugBFrom2026  TZugBPeriod = "from2026"
)

// tZugBBaseKey is the table that supplies the T-ZUG B base once the 2026
// period applies.
const tZugBBaseKey = "april2026"

// Input carries one wage calculation request. All numeric fields are
// validated by the transport layer; Calculate only checks table-dependent
// constraints.
type Input struct {
	TariffDate     string
	PayGroup       string // e.g. EG05 or AJ2
	Step           string // required for stepped pay groups
	IrwazHours     float64
	PerformancePct float64
	VacationDays   int
	TenureMonths   int
	TZugBPeriod    TZugBPeriod
	OwnChildren    bool
}

// Breakdown itemises every wage component in euros, rounded to cents.
type Breakdown struct {
	Base35          float64      `json:"grund35"`
	IrwazHours      float64      `json:"irwazHours"`
	Base            float64      `json:"grund"`
	Bonus           *float64     `json:"bonus,omitempty"`
	ChildSupplement float64      `json:"kinderzulage"`
	P13             float64      `json:"p13"`
	Month13         float64      `json:"mon13"`
	TGeld           float64      `json:"tGeld"`
	TZugA           float64      `json:"tZugA"`
	TZugB           float64      `json:"tZugB"`
	Vacation        VacationPart `json:"urlaub"`
}

// VacationPart details the vacation pay component.
type VacationPart struct {
	PerDay float64 `json:"entgeltProTag"`
	Days   int     `json:"tage"`
	Total  float64 `json:"gesamt"`
}

// Totals summarises the monthly and yearly figures.
type Totals struct {
	Month        float64 `json:"monat"`
	Year         float64 `json:"jahr"`
	AverageMonth float64 `json:"durchschnittMonat"`
}

// Result is the full calculation response.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Totals    Totals    `json:"totals"`
}

// euro rounds to cents; non-finite input collapses to zero.
func euro(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return math.Round(n*100) / 100
}

// isTrainee reports whether the pay group is a trainee grade (AJ prefix).
func isTrainee(payGroup string) bool {
	return strings.HasPrefix(payGroup, "AJ")
}

// Calculate computes the wage breakdown for the supplied input against the
// versioned tables. It is a pure function of the provider state and input.
func Calculate(tables port.TableProvider, in Input) (*Result, error) {
	tbl := tables.GetTable(in.TariffDate)
	if tbl == nil {
		return nil, fmt.Errorf("no table found for '%s'", in.TariffDate)
	}

	group, ok := tbl[in.PayGroup]
	if !ok {
		group, ok = tbl["EG01"]
		if !ok {
			return nil, fmt.Errorf("pay group '%s' does not exist in '%s'", in.PayGroup, in.TariffDate)
		}
	}

	var base35 float64
	if group.HasSalary() {
		base35 = *group.Salary
	} else {
		step := in.Step
		if step == "" {
			step = group.DefaultStep()
		}
		value, ok := group.Step(step)
		if !ok {
			return nil, fmt.Errorf("base value missing for %s / %s", in.PayGroup, step)
		}
		base35 = value
	}

	base := base35 * (in.IrwazHours / 35)
	trainee := isTrainee(in.PayGroup)

	var bonus float64
	if !trainee {
		bonus = base * (in.PerformancePct / 100)
	}

	var childSupplement float64
	if trainee && in.OwnChildren {
		childSupplement = base * 0.5
	}

	// 13th-month percentage by tenure.
	var p13 float64
	switch {
	case in.TenureMonths >= 36:
		p13 = 55
	case in.TenureMonths >= 24:
		p13 = 45
	case in.TenureMonths >= 12:
		p13 = 35
	case in.TenureMonths >= 6:
		p13 = 25
	}

	month13 := (base + bonus) * (p13 / 100)
	tGeld := (base + bonus) * 0.184
	tZugA := (base + bonus) * 0.275

	// T-ZUG B is based on EG05 step B of the period-resolved table.
	tzugKey := in.TariffDate
	pTZugB := 18.5
	if in.TZugBPeriod == TZugBFrom2026 {
		tzugKey = tZugBBaseKey
		pTZugB = 26.5
	}
	var tZugB float64
	if trainee {
		tZugB = base * (pTZugB / 100)
	} else {
		baseTbl := tables.GetTable(tzugKey)
		if baseTbl == nil {
			return nil, fmt.Errorf("t-zug b base table '%s' missing", tzugKey)
		}
		eg05, ok := baseTbl["EG05"]
		if !ok {
			return nil, fmt.Errorf("t-zug b base (EG05.B) missing in table '%s'", tzugKey)
		}
		baseB, ok := eg05.Step("B")
		if !ok {
			return nil, fmt.Errorf("t-zug b base (EG05.B) missing in table '%s'", tzugKey)
		}
		tZugB = baseB * (pTZugB / 100)
	}

	var perDay float64
	if in.VacationDays > 0 {
		perDay = ((base + bonus) / 65.25) * 1.5
	}
	vacationTotal := perDay * float64(in.VacationDays)

	monthBase := base + bonus
	month := monthBase + childSupplement
	year := monthBase*12 + childSupplement*12 + month13 + tGeld + tZugA + tZugB + vacationTotal

	breakdown := Breakdown{
		Base35:          euro(base35),
		IrwazHours:      in.IrwazHours,
		Base:            euro(base),
		ChildSupplement: euro(childSupplement),
		P13:             p13,
		Month13:         euro(month13),
		TGeld:           euro(tGeld),
		TZugA:           euro(tZugA),
		TZugB:           euro(tZugB),
		Vacation: VacationPart{
			PerDay: euro(perDay),
			Days:   in.VacationDays,
			Total:  euro(vacationTotal),
		},
	}
	if !trainee {
		rounded := euro(bonus)
		breakdown.Bonus = &rounded
	}

	return &Result{
		Breakdown: breakdown,
		Totals: Totals{
			Month:        euro(month),
			Year:         euro(year),
			AverageMonth: euro(year / 12),
		},
	}, nil
}

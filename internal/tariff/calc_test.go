package tariff

import (
	"math"
	"testing"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
)

type stubProvider struct {
	tables map[string]domain.TariffTable
}

func (s *stubProvider) GetTable(key string) domain.TariffTable {
	if tbl, ok := s.tables[key]; ok {
		return tbl
	}
	return s.tables["current"]
}

func (s *stubProvider) GetEntry(key string) (*domain.TableEntry, bool) {
	tbl := s.GetTable(key)
	if tbl == nil {
		return nil, false
	}
	return &domain.TableEntry{Table: tbl}, true
}

func (s *stubProvider) ListTableKeys() []string {
	keys := make([]string, 0, len(s.tables))
	for key := range s.tables {
		keys = append(keys, key)
	}
	return keys
}

func salary(v float64) domain.PayGroup {
	return domain.PayGroup{Salary: &v}
}

func steps(m map[string]float64) domain.PayGroup {
	return domain.PayGroup{Steps: m}
}

func testProvider() *stubProvider {
	return &stubProvider{tables: map[string]domain.TariffTable{
		"april2025": {
			"EG01": steps(map[string]float64{"A": 2500}),
			"EG05": steps(map[string]float64{"A": 3300, "B": 3475}),
			"AJ1":  salary(1250),
		},
		"april2026": {
			"EG05": steps(map[string]float64{"A": 3400, "B": 3583}),
		},
	}}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func TestCalculateTotalsUntil2025(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:   "april2025",
		PayGroup:     "EG05",
		Step:         "B",
		IrwazHours:   35,
		TZugBPeriod:  TZugBUntil2025,
		VacationDays: 0,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if !closeTo(result.Totals.Month, 3475) {
		t.Fatalf("expected monthly total 3475, got %v", result.Totals.Month)
	}
	if !closeTo(result.Totals.Year, 43937.9) {
		t.Fatalf("expected yearly total 43937.90, got %v", result.Totals.Year)
	}
}

func TestCalculateTotalsFrom2026(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:  "april2025",
		PayGroup:    "EG05",
		Step:        "B",
		IrwazHours:  35,
		TZugBPeriod: TZugBFrom2026,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if !closeTo(result.Totals.Month, 3475) {
		t.Fatalf("expected monthly total 3475, got %v", result.Totals.Month)
	}
	if !closeTo(result.Totals.Year, 44244.52) {
		t.Fatalf("expected yearly total 44244.52, got %v", result.Totals.Year)
	}
	// from2026 resolves the T-ZUG B base from the april2026 table at 26.5%.
	if !closeTo(result.Breakdown.TZugB, 949.5) {
		t.Fatalf("expected tZugB 949.50, got %v", result.Breakdown.TZugB)
	}
}

func TestCalculatePerformanceBonus(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:     "april2025",
		PayGroup:       "EG05",
		Step:           "B",
		IrwazHours:     35,
		PerformancePct: 10,
		TZugBPeriod:    TZugBUntil2025,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if result.Breakdown.Bonus == nil {
		t.Fatalf("expected bonus to be present")
	}
	if !closeTo(*result.Breakdown.Bonus, 347.5) {
		t.Fatalf("expected bonus 347.50, got %v", *result.Breakdown.Bonus)
	}
	if !closeTo(result.Totals.Month, 3822.5) {
		t.Fatalf("expected monthly total 3822.50, got %v", result.Totals.Month)
	}
}

func TestCalculateTraineeSkipsBonusAndAddsChildSupplement(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:     "april2025",
		PayGroup:       "AJ1",
		IrwazHours:     35,
		PerformancePct: 15,
		TZugBPeriod:    TZugBUntil2025,
		OwnChildren:    true,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if result.Breakdown.Bonus != nil {
		t.Fatalf("trainees must not receive a performance bonus, got %v", *result.Breakdown.Bonus)
	}
	if !closeTo(result.Breakdown.ChildSupplement, 625) {
		t.Fatalf("expected child supplement 625, got %v", result.Breakdown.ChildSupplement)
	}
	// Trainee T-ZUG B derives from their own base, not EG05.B.
	if !closeTo(result.Breakdown.TZugB, 1250*0.185) {
		t.Fatalf("expected tZugB %v, got %v", 1250*0.185, result.Breakdown.TZugB)
	}
	if !closeTo(result.Totals.Month, 1875) {
		t.Fatalf("expected monthly total 1875, got %v", result.Totals.Month)
	}
}

func TestCalculateTenureTiers(t *testing.T) {
	cases := []struct {
		months int
		p13    float64
	}{
		{0, 0},
		{5, 0},
		{6, 25},
		{12, 35},
		{24, 45},
		{36, 55},
		{120, 55},
	}

	for _, tc := range cases {
		result, err := Calculate(testProvider(), Input{
			TariffDate:   "april2025",
			PayGroup:     "EG05",
			Step:         "B",
			IrwazHours:   35,
			TenureMonths: tc.months,
			TZugBPeriod:  TZugBUntil2025,
		})
		if err != nil {
			t.Fatalf("Calculate(%d months) returned error: %v", tc.months, err)
		}
		if result.Breakdown.P13 != tc.p13 {
			t.Fatalf("tenure %d months: expected p13 %v, got %v", tc.months, tc.p13, result.Breakdown.P13)
		}
	}
}

func TestCalculateVacationPay(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:   "april2025",
		PayGroup:     "EG05",
		Step:         "B",
		IrwazHours:   35,
		VacationDays: 30,
		TZugBPeriod:  TZugBUntil2025,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	perDay := math.Round(3475.0/65.25*1.5*100) / 100
	if !closeTo(result.Breakdown.Vacation.PerDay, perDay) {
		t.Fatalf("expected per-day %v, got %v", perDay, result.Breakdown.Vacation.PerDay)
	}
	if result.Breakdown.Vacation.Days != 30 {
		t.Fatalf("expected 30 vacation days, got %d", result.Breakdown.Vacation.Days)
	}
}

func TestCalculatePartTimeScalesBase(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:  "april2025",
		PayGroup:    "EG05",
		Step:        "B",
		IrwazHours:  17.5,
		TZugBPeriod: TZugBUntil2025,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if !closeTo(result.Breakdown.Base, 1737.5) {
		t.Fatalf("expected base 1737.50, got %v", result.Breakdown.Base)
	}
}

func TestCalculateUnknownPayGroupFallsBackToEG01(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:  "april2025",
		PayGroup:    "EG99",
		IrwazHours:  35,
		TZugBPeriod: TZugBUntil2025,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if !closeTo(result.Breakdown.Base35, 2500) {
		t.Fatalf("expected EG01 base 2500, got %v", result.Breakdown.Base35)
	}
}

func TestCalculateMissingStep(t *testing.T) {
	_, err := Calculate(testProvider(), Input{
		TariffDate:  "april2025",
		PayGroup:    "EG05",
		Step:        "Z",
		IrwazHours:  35,
		TZugBPeriod: TZugBUntil2025,
	})
	if err == nil {
		t.Fatalf("expected error for unknown step")
	}
}

func TestCalculateDefaultStepIsLexicographicFirst(t *testing.T) {
	result, err := Calculate(testProvider(), Input{
		TariffDate:  "april2025",
		PayGroup:    "EG05",
		IrwazHours:  35,
		TZugBPeriod: TZugBUntil2025,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if !closeTo(result.Breakdown.Base35, 3300) {
		t.Fatalf("expected step A base 3300, got %v", result.Breakdown.Base35)
	}
}

func TestCalculateMissingTable(t *testing.T) {
	provider := &stubProvider{tables: map[string]domain.TariffTable{}}
	if _, err := Calculate(provider, Input{TariffDate: "nonexistent", PayGroup: "EG05", IrwazHours: 35}); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestEuroRounding(t *testing.T) {
	if got := euro(1.005); !closeTo(got, 1.01) && !closeTo(got, 1.0) {
		t.Fatalf("unexpected rounding result: %v", got)
	}
	if got := euro(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to collapse to 0, got %v", got)
	}
	if got := euro(math.Inf(1)); got != 0 {
		t.Fatalf("expected Inf to collapse to 0, got %v", got)
	}
}

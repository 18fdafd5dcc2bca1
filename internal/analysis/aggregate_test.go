package analysis

import (
	"math"
	"testing"

	"predial/internal/core"
)

func mustTable(t *testing.T, header []string, rows ...[]core.Cell) *core.Table {
	t.Helper()
	tbl, err := core.NewTable("test", header, rows)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestSafeSum_AbsentColumnIsZero(t *testing.T) {
	tbl := mustTable(t, []string{"A"}, []core.Cell{core.Number(3)})
	if got := SafeSum(tbl, "LEY 44"); got != 0 {
		t.Fatalf("SafeSum(absent) = %v, want 0", got)
	}
}

func TestSafeSum_IgnoresMissingValues(t *testing.T) {
	tbl := mustTable(t, []string{"V"},
		[]core.Cell{core.Text("1.000,5")},
		[]core.Cell{core.Text("no aplica")},
		[]core.Cell{core.Empty()},
		[]core.Cell{core.Text("2,5")},
	)
	if got := SafeSum(tbl, "V"); math.Abs(got-1003) > 1e-9 {
		t.Fatalf("SafeSum = %v, want 1003", got)
	}
	if got := SafeCount(tbl, "V"); got != 2 {
		t.Fatalf("SafeCount = %d, want 2", got)
	}
}

func TestSafeSum_TrimsRequestedName(t *testing.T) {
	tbl := mustTable(t, []string{"LEY 44"}, []core.Cell{core.Number(10)}, []core.Cell{core.Number(5)})
	if got := SafeSum(tbl, "LEY 44 "); got != 15 {
		t.Fatalf("SafeSum = %v, want 15", got)
	}
}

func TestSafeMean(t *testing.T) {
	tbl := mustTable(t, []string{"V", "E"},
		[]core.Cell{core.Number(2), core.Empty()},
		[]core.Cell{core.Empty(), core.Text("x")},
		[]core.Cell{core.Number(4), core.Empty()},
	)
	if m, ok := SafeMean(tbl, "V"); !ok || m != 3 {
		t.Fatalf("SafeMean(V) = %v, %v", m, ok)
	}
	if _, ok := SafeMean(tbl, "E"); ok {
		t.Fatalf("SafeMean over no valid values must be undefined")
	}
	if _, ok := SafeMean(tbl, "missing"); ok {
		t.Fatalf("SafeMean over an absent column must be undefined")
	}
}

func TestAggregateApply(t *testing.T) {
	n := core.NumericColumn{core.Some(1), core.None(), core.Some(5)}
	tests := []struct {
		agg  Aggregate
		want core.NullFloat
	}{
		{Sum, core.Some(6)},
		{Mean, core.Some(3)},
		{Count, core.Some(2)},
		{Aggregate("median"), core.None()},
	}
	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			if got := tt.agg.Apply(n); got != tt.want {
				t.Fatalf("Apply = %+v, want %+v", got, tt.want)
			}
		})
	}
	if got := Sum.Apply(nil); got != core.Some(0) {
		t.Fatalf("sum of nothing = %+v, want 0", got)
	}
}

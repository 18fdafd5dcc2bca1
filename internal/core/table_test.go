package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewTable_NormalizesHeader(t *testing.T) {
	tbl, err := NewTable("URBANO", []string{" LIQ_2025", "LEY 44 ", "", "LEY 44", "LEY 44"}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	want := []string{"LIQ_2025", "LEY 44", "Unnamed: 2", "LEY 44.1", "LEY 44.2"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	if !tbl.Has("LEY 44 ") {
		t.Fatalf("lookup should trim the requested name")
	}
}

func TestNewTable_DuplicateSuffixDoesNotCollide(t *testing.T) {
	tbl, err := NewTable("s", []string{"A.1", "A", "A"}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	want := []string{"A.1", "A", "A.2"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
}

func TestNewTable_PadsShortRows(t *testing.T) {
	tbl, err := NewTable("s", []string{"A", "B"}, [][]Cell{
		{Text("x")},
		{Text("y"), Number(2), Text("dropped")},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d", tbl.Len())
	}
	b, _ := tbl.Column("B")
	if !b.Cells[0].IsEmpty() || b.Cells[1].Number != 2 {
		t.Fatalf("unexpected B cells: %+v", b.Cells)
	}
	header, rows := tbl.Rows()
	if len(header) != 2 || len(rows[1]) != 2 {
		t.Fatalf("unexpected Rows(): %v %v", header, rows)
	}
}

func TestNewTable_NoHeader(t *testing.T) {
	_, err := NewTable("s", nil, nil)
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestColumnReturnsCopy(t *testing.T) {
	tbl, _ := NewTable("s", []string{"A"}, [][]Cell{{Number(1)}})
	c, _ := tbl.Column("A")
	c.Cells[0] = Number(99)
	again, _ := tbl.Column("A")
	if again.Cells[0].Number != 1 {
		t.Fatalf("table was mutated through a returned column")
	}
}

func TestColumnIsNumeric(t *testing.T) {
	tests := []struct {
		name  string
		cells []Cell
		want  bool
	}{
		{"numbers and blanks", []Cell{Number(1), Empty(), Number(2.5)}, true},
		{"all blank", []Cell{Empty(), Empty()}, true},
		{"mixed", []Cell{Number(1), Text("2")}, false},
		{"text only", []Cell{Text("1.000,5")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Column{Cells: tt.cells}).IsNumeric(); got != tt.want {
				t.Fatalf("IsNumeric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextBlankIsEmpty(t *testing.T) {
	if !Text("   ").IsEmpty() {
		t.Fatalf("blank text should be empty")
	}
}

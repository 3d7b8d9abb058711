package splinter

import (
	"reflect"
	"testing"
)

func TestNewSymbolMap_SortedFromBase(t *testing.T) {
	table := NewTable([]rune("ba"), map[int]map[Key]float64{
		3: {k(2, 'c'): 1},
		4: {k(3, 'd'): 1},
	})

	m, err := NewSymbolMap(table, DefaultSymbolBase)
	if err != nil {
		t.Fatalf("NewSymbolMap: %v", err)
	}

	order := []string{"2:c", "3:d", "a", "b"}
	for i, text := range order {
		r, ok := m.Symbol(text)
		if !ok {
			t.Fatalf("%q not mapped", text)
		}
		if want := DefaultSymbolBase + rune(i); r != want {
			t.Errorf("Symbol(%q) = U+%04X, want U+%04X", text, r, want)
		}
		if back, _ := m.Text(r); back != text {
			t.Errorf("Text(U+%04X) = %q, want %q", r, back, text)
		}
	}
	if m.Len() != len(order) {
		t.Errorf("Len = %d, want %d", m.Len(), len(order))
	}
}

func TestNewSymbolMap_Deterministic(t *testing.T) {
	build := func() map[string]string {
		table := NewTable([]rune("abcdef"), map[int]map[Key]float64{
			4: {k(0, 'a'): 0.5, k(1, 'b'): 0.3, k(3, 'f'): 0.2},
			5: {k(2, 'c'): 0.6, k(4, 'e'): 0.4},
		})
		m, err := NewSymbolMap(table, 0)
		if err != nil {
			t.Fatalf("NewSymbolMap: %v", err)
		}
		return m.Forward()
	}

	first := build()
	for range 5 {
		if got := build(); !reflect.DeepEqual(got, first) {
			t.Fatalf("symbol map changed between runs")
		}
	}
}

func TestSymbolMap_Bijective(t *testing.T) {
	table := NewTable([]rune("abcd"), map[int]map[Key]float64{
		4: {k(0, 'a'): 0.5, k(3, 'd'): 0.5},
	})
	m, err := NewSymbolMap(table, DefaultSymbolBase)
	if err != nil {
		t.Fatalf("NewSymbolMap: %v", err)
	}

	fwd, inv := m.Forward(), m.Inverse()
	if len(fwd) != len(inv) {
		t.Fatalf("forward %d entries, inverse %d", len(fwd), len(inv))
	}
	for text, sym := range fwd {
		if inv[sym] != text {
			t.Errorf("inverse[%q] = %q, want %q", sym, inv[sym], text)
		}
	}

	rebuilt, err := SymbolMapFromForward(fwd)
	if err != nil {
		t.Fatalf("SymbolMapFromForward: %v", err)
	}
	if !reflect.DeepEqual(rebuilt.Inverse(), inv) {
		t.Error("rebuilt inverse differs")
	}
}

func TestSymbolMapFromForward_Errors(t *testing.T) {
	if _, err := SymbolMapFromForward(map[string]string{"a": "xy"}); err == nil {
		t.Error("expected error for multi-symbol value")
	}
	if _, err := SymbolMapFromForward(map[string]string{"a": "\U000F0000", "b": "\U000F0000"}); err == nil {
		t.Error("expected error for shared symbol")
	}
}

func TestNewSymbolMap_SkipsNoncharacters(t *testing.T) {
	table := NewTable([]rune("abc"), nil)
	m, err := NewSymbolMap(table, 0xFFFFD)
	if err != nil {
		t.Fatalf("NewSymbolMap: %v", err)
	}
	want := map[string]rune{"a": 0xFFFFD, "b": 0x100000, "c": 0x100001}
	for text, r := range want {
		if got, _ := m.Symbol(text); got != r {
			t.Errorf("Symbol(%q) = U+%04X, want U+%04X", text, got, r)
		}
	}
}

func TestNewSymbolMap_Overflow(t *testing.T) {
	table := NewTable([]rune("abc"), nil)
	if _, err := NewSymbolMap(table, 0x10FFFC); err == nil {
		t.Error("expected overflow error")
	}
}

func TestNewSymbolMap_NilTable(t *testing.T) {
	if _, err := NewSymbolMap(nil, 0); err != ErrMissingReductionTable {
		t.Errorf("err = %v, want ErrMissingReductionTable", err)
	}
}

package splinter

// Model is the result of training: the reduction table plus the symbol map
// derived from it.
type Model struct {
	Table   *Table
	Symbols *SymbolMap
}

// NewModel derives the symbol map for t starting at base.
func NewModel(t *Table, base rune) (*Model, error) {
	symbols, err := NewSymbolMap(t, base)
	if err != nil {
		return nil, err
	}
	return &Model{Table: t, Symbols: symbols}, nil
}

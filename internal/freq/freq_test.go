package freq

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
)

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func mustLang(t *testing.T, id string) lang.Canonicalizer {
	t.Helper()
	c, err := lang.Lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestBuilder_AddLine(t *testing.T) {
	b := NewBuilder(mustLang(t, "ms"), quietLogger())
	b.AddLine("saya makan nasi. Saya minum-air, (makan)")
	b.AddLine("")

	want := map[string]int{"saya": 1, "Saya": 1, "makan": 2, "nasi": 1, "minum": 1, "air": 1}
	if got := b.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if b.Lines() != 2 {
		t.Errorf("Lines = %d, want 2", b.Lines())
	}
}

func TestBuilder_StripsDiacritics(t *testing.T) {
	b := NewBuilder(mustLang(t, "he"), quietLogger())
	b.AddLine("שָׁלוֹם שלום")

	if got := b.Counts(); got["שלום"] != 2 || len(got) != 1 {
		t.Errorf("Counts = %v, want שלום:2", got)
	}
}

func TestBuilder_ReadFrom(t *testing.T) {
	b := NewBuilder(mustLang(t, "ms"), quietLogger())
	n, err := b.ReadFrom(context.Background(), strings.NewReader("a b\nb c\n\nc c\n"))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if n != 4 {
		t.Errorf("lines = %d, want 4", n)
	}
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	if got := b.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
}

func TestBuilder_ReadFromCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(mustLang(t, "ms"), quietLogger())
	if _, err := b.ReadFrom(ctx, strings.NewReader("a\nb\n")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "words_dict.json")
	counts := map[string]int{"שלום": 3, "a<b": 1}

	if err := Save(path, counts); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, counts) {
		t.Errorf("Load = %v, want %v", got, counts)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error")
	}
}

func TestPrepare(t *testing.T) {
	counts := map[string]int{
		"makan":  20,
		"rumah":  40,
		"a":      100,
		"abc1":   50,
		"jarang": 2,
	}

	got, err := Prepare(counts, mustLang(t, "ms"), Options{MinFrequency: 10})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := map[string]float64{"rumah": 1, "makan": 0.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prepare = %v, want %v", got, want)
	}
}

// lowerMalay folds case so distinct surface forms collide.
type lowerMalay struct{ lang.Malay }

func (lowerMalay) Canonicalize(word string) string { return strings.ToLower(word) }

func TestPrepare_MergesCanonicalCollisions(t *testing.T) {
	counts := map[string]int{"Makan": 30, "makan": 10, "rumah": 20}

	got, err := Prepare(counts, lowerMalay{}, Options{MinFrequency: 1})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := map[string]float64{"makan": 1, "rumah": 0.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prepare = %v, want %v", got, want)
	}
}

func TestPrepare_HebrewFinalLetters(t *testing.T) {
	got, err := Prepare(map[string]int{"שלום": 30, "ספר": 15}, mustLang(t, "he"), Options{MinFrequency: 1})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := map[string]float64{"שלומ": 1, "ספר": 0.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prepare = %v, want %v", got, want)
	}
}

func TestPrepare_Empty(t *testing.T) {
	_, err := Prepare(map[string]int{"a": 100, "bb": 1}, mustLang(t, "ms"), Options{MinFrequency: 5})
	if !errors.Is(err, splinter.ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestPrepareLearnEncode_SmallCorpus(t *testing.T) {
	canon := mustLang(t, "ms")

	weights, err := Prepare(map[string]int{"abcd": 10, "abc": 5, "bcd": 3, "ab": 2}, canon, Options{MinFrequency: 1})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	wantWeights := map[string]float64{"abcd": 1, "abc": 0.5, "bcd": 0.3, "ab": 0.2}
	if !reflect.DeepEqual(weights, wantWeights) {
		t.Fatalf("Prepare = %v, want %v", weights, wantWeights)
	}

	opts := splinter.DefaultLearnerOptions()
	opts.Logger = quietLogger()
	model, err := splinter.NewLearner(opts).Learn(context.Background(), weights, canon.Alphabet())
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	// Deleting a from abcd also reaches bcd, but abc outweighs it.
	tests := []struct {
		length int
		want   []splinter.Scored
	}{
		{4, []splinter.Scored{{Key: splinter.Key{Pos: 3, Sym: 'd'}, Score: 1}}},
		{3, []splinter.Scored{{Key: splinter.Key{Pos: 2, Sym: 'c'}, Score: 1}}},
	}
	for _, tt := range tests {
		if got := model.Table.Reductions(tt.length); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("length %d reductions = %v, want %v", tt.length, got, tt.want)
		}
	}
	if got := model.Table.Reductions(2); len(got) != 0 {
		t.Errorf("length 2 reductions = %v, want none", got)
	}

	e, err := splinter.NewEngine(model, canon, splinter.EngineOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tokens := e.Encode("abcd")
	if got := splinter.FormatTokens(tokens, " "); got != "a b c 3:d" {
		t.Errorf("Encode(abcd) = %q, want %q", got, "a b c 3:d")
	}
	if got := e.Decode(tokens); got != "abcd" {
		t.Errorf("Decode = %q, want abcd", got)
	}
	if got := e.DecodeWord(e.EncodeWord("abcd")); got != "abcd" {
		t.Errorf("DecodeWord(EncodeWord(abcd)) = %q", got)
	}
}

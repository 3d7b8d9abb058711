package artifact

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/example/go-splinter/internal/splinter"
)

func testModel(t *testing.T) *splinter.Model {
	t.Helper()
	table := splinter.NewTable([]rune("abcdש"), map[int]map[splinter.Key]float64{
		3: {{Pos: 2, Sym: 'c'}: 1},
		4: {{Pos: 3, Sym: 'd'}: 0.7, {Pos: -1, Sym: 'a'}: 0.3},
	})
	m, err := splinter.NewModel(table, splinter.DefaultSymbolBase)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testManifest() Manifest {
	return Manifest{
		Language:  "ms",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Learner:   LearnerSettings{MinFrequency: 10, MaxCandidates: 3, TopN: 8000, Refine: true},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := testModel(t)

	if err := Save(dir, m, testManifest()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, man, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Table.TextForm(), m.Table.TextForm()) {
		t.Error("table differs after round trip")
	}
	if !reflect.DeepEqual(got.Symbols.Forward(), m.Symbols.Forward()) {
		t.Error("symbol map differs after round trip")
	}
	if man.Language != "ms" || man.Version != manifestVersion {
		t.Errorf("manifest = %+v", man)
	}
	if !reflect.DeepEqual(man.Lengths, []int{3, 4}) {
		t.Errorf("manifest lengths = %v", man.Lengths)
	}
	if man.Symbols != m.Symbols.Len() {
		t.Errorf("manifest symbols = %d, want %d", man.Symbols, m.Symbols.Len())
	}
	if len(man.Files) != 4 {
		t.Errorf("manifest files = %v", man.Files)
	}
}

func TestSave_JSONFormat(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ReductionsFile))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "\n\t\"4\": {\n\t\t\"-1:a\": 0.3,\n\t\t\"3:d\": 0.7\n\t}") {
		t.Errorf("unexpected layout:\n%s", s)
	}
	if !strings.Contains(s, "\"ש\": 1") {
		t.Errorf("symbols should be written unescaped:\n%s", s)
	}
}

func TestSave_Deterministic(t *testing.T) {
	m := testModel(t)
	a, b := t.TempDir(), t.TempDir()
	if err := Save(a, m, testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := Save(b, m, testManifest()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{ReductionsFile, SymbolsFile, InverseFile, BundleFile, ManifestFile} {
		x, _ := os.ReadFile(filepath.Join(a, name))
		y, _ := os.ReadFile(filepath.Join(b, name))
		if !bytes.Equal(x, y) {
			t.Errorf("%s differs between saves", name)
		}
	}
}

func TestSave_NilModelLeavesDirUntouched(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := Save(dir, nil, testManifest()); !errors.Is(err, splinter.ErrMissingReductionTable) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("artifact dir should not exist, stat err = %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	if _, _, err := Load(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoad_InverseMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := writeJSON(filepath.Join(dir, InverseFile), map[string]string{"x": "y"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(dir); err == nil {
		t.Error("expected error for inconsistent inverse map")
	}
}

func TestLoad_WithoutManifest(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil {
		t.Fatal(err)
	}
	_, man, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if man.Language != "" {
		t.Errorf("manifest = %+v, want zero", man)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := Verify(dir); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	path := filepath.Join(dir, SymbolsFile)
	data, _ := os.ReadFile(path)
	if err := os.WriteFile(path, append(data, ' '), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Verify(dir)
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ChecksumError", err)
	}
	if !reflect.DeepEqual(ce.Files, []string{SymbolsFile}) {
		t.Errorf("Files = %v", ce.Files)
	}
}

func TestVerify_MissingManifest(t *testing.T) {
	if err := Verify(t.TempDir()); err == nil {
		t.Error("expected error")
	}
}

func TestBundle_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), BundleFile)
	m := testModel(t)

	if err := SaveBundle(path, Bundle{Model: m, Language: "he", Tokenizer: []byte("sp")}); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	got, err := LoadBundle(path)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if got.Language != "he" {
		t.Errorf("language = %q", got.Language)
	}
	if string(got.Tokenizer) != "sp" {
		t.Errorf("tokenizer = %q", got.Tokenizer)
	}
	if !reflect.DeepEqual(got.Model.Table.TextForm(), m.Table.TextForm()) {
		t.Error("table differs")
	}
	if !reflect.DeepEqual(got.Model.Symbols.Inverse(), m.Symbols.Inverse()) {
		t.Error("symbols differ")
	}
}

func TestLoadModel_FallsBackToJSON(t *testing.T) {
	dir := t.TempDir()
	m := testModel(t)
	if err := Save(dir, m, testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, BundleFile)); err != nil {
		t.Fatal(err)
	}

	got, language, err := LoadModel(dir)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if !reflect.DeepEqual(got.Table.TextForm(), m.Table.TextForm()) {
		t.Error("table differs")
	}
	if language != "ms" {
		t.Errorf("language = %q, want ms from the manifest", language)
	}
}

func TestLoadModel_ReturnsBundleLanguage(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil {
		t.Fatal(err)
	}

	_, language, err := LoadModel(dir)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if language != "ms" {
		t.Errorf("language = %q, want ms", language)
	}
}

func TestLoadModel_BundleManifestDisagree(t *testing.T) {
	dir := t.TempDir()
	m := testModel(t)
	if err := Save(dir, m, testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := SaveBundle(filepath.Join(dir, BundleFile), Bundle{Model: m, Language: "he"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := LoadModel(dir); !errors.Is(err, ErrLanguageMismatch) {
		t.Fatalf("err = %v, want ErrLanguageMismatch", err)
	}
}

func TestCheckLanguage(t *testing.T) {
	tests := []struct {
		name      string
		want, got string
		wantErr   bool
	}{
		{"same", "he", "he", false},
		{"unknown artifact language", "he", "", false},
		{"unknown configured language", "", "ms", false},
		{"different", "ms", "he", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLanguage("dir", tt.want, tt.got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckLanguage(%q, %q) = %v", tt.want, tt.got, err)
			}
			if err != nil && !errors.Is(err, ErrLanguageMismatch) {
				t.Errorf("err = %v, want ErrLanguageMismatch", err)
			}
		})
	}
}

func TestSave_ReplacesWholeSetAndKeepsOtherFiles(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "out")
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "words_dict.json"), []byte(`{"abc":3}`), 0o644); err != nil {
		t.Fatal(err)
	}

	table := splinter.NewTable([]rune("xyz"), map[int]map[splinter.Key]float64{
		3: {{Pos: 0, Sym: 'x'}: 1},
	})
	next, err := splinter.NewModel(table, splinter.DefaultSymbolBase)
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(dir, next, testManifest()); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Table.TextForm(), next.Table.TextForm()) {
		t.Error("table is not the second model")
	}
	if err := Verify(dir); err != nil {
		t.Errorf("Verify: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "words_dict.json"))
	if err != nil || string(data) != `{"abc":3}` {
		t.Errorf("word dictionary not carried over: %q, %v", data, err)
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("staging leftovers in parent: %v", names)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("artifact dir mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestAttachTokenizer(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTokenizer(dir); !errors.Is(err, ErrNoTokenizer) {
		t.Fatalf("LoadTokenizer before attach: %v, want ErrNoTokenizer", err)
	}

	if err := AttachTokenizer(dir, []byte("model bytes")); err != nil {
		t.Fatalf("AttachTokenizer: %v", err)
	}

	data, err := LoadTokenizer(dir)
	if err != nil || string(data) != "model bytes" {
		t.Fatalf("LoadTokenizer = %q, %v", data, err)
	}
	if err := Verify(dir); err != nil {
		t.Errorf("Verify after attach: %v", err)
	}
	man, err := ReadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if man.Tokenizer != sha256Hex([]byte("model bytes")) {
		t.Errorf("manifest tokenizer = %q", man.Tokenizer)
	}

	// Retraining drops the tokenizer: its pieces were built on old symbols.
	if err := Save(dir, testModel(t), testManifest()); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTokenizer(dir); !errors.Is(err, ErrNoTokenizer) {
		t.Errorf("LoadTokenizer after Save: %v, want ErrNoTokenizer", err)
	}
}

func TestAttachTokenizer_Empty(t *testing.T) {
	if err := AttachTokenizer(t.TempDir(), nil); err == nil {
		t.Error("expected error for empty model")
	}
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/example/go-splinter/internal/artifact"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/example/go-splinter/internal/testutil"
	"github.com/example/go-splinter/internal/tokenizer"
)

// trainFixture trains a Malay artifact set and returns the flags that point
// later commands at it.
func trainFixture(t *testing.T) []string {
	t.Helper()

	dir := t.TempDir()
	flags := []string{
		"--language", "ms",
		"--paths-corpus-path", testutil.WriteCorpus(t, dir),
		"--paths-artifact-dir", filepath.Join(dir, "artifacts"),
		"--learner-min-frequency", "1",
	}

	if _, err := runCLI(t, append([]string{"train"}, flags...)...); err != nil {
		t.Fatalf("train: %v", err)
	}

	return flags
}

func flagValue(flags []string, name string) string {
	for i := 0; i+1 < len(flags); i++ {
		if flags[i] == name {
			return flags[i+1]
		}
	}

	return ""
}

func TestTrain_WritesArtifactsAndWordDict(t *testing.T) {
	flags := trainFixture(t)
	dir := flagValue(flags, "--paths-artifact-dir")

	for _, name := range []string{
		artifact.ReductionsFile,
		artifact.SymbolsFile,
		artifact.InverseFile,
		artifact.ManifestFile,
		artifact.BundleFile,
		"words_dict.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	man, err := artifact.ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	if man.Language != "ms" || man.Learner.MinFrequency != 1 {
		t.Errorf("unexpected manifest: %+v", man)
	}

	if err := artifact.Verify(dir); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestTrain_ReusesWordDict(t *testing.T) {
	flags := trainFixture(t)

	// With the corpus gone, a second run must come from the cached dictionary.
	if err := os.Remove(flagValue(flags, "--paths-corpus-path")); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, append([]string{"train"}, flags...)...); err != nil {
		t.Fatalf("second train: %v", err)
	}

	_, err := runCLI(t, append([]string{"train", "--rebuild-word-dict"}, flags...)...)
	if err == nil || !strings.Contains(err.Error(), "open corpus") {
		t.Fatalf("rebuild without corpus: got %v, want open corpus error", err)
	}
}

func TestTrain_EmptyCorpusWritesNothing(t *testing.T) {
	dir := t.TempDir()
	art := filepath.Join(dir, "artifacts")

	_, err := runCLI(t, "train",
		"--language", "ms",
		"--paths-corpus-path", testutil.WriteCorpus(t, dir),
		"--paths-artifact-dir", art,
		"--learner-min-frequency", "1000",
	)
	if !errors.Is(err, splinter.ErrEmptyCorpus) {
		t.Fatalf("want ErrEmptyCorpus, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(art, artifact.ReductionsFile)); !os.IsNotExist(err) {
		t.Errorf("reduction table should not exist after a failed run, stat err = %v", err)
	}
}

func TestEncodeDecode_FileRoundTrip(t *testing.T) {
	flags := trainFixture(t)
	dir := t.TempDir()

	const input = "saya makan makanan di rumahnya\npembaca membaca bukunya\n"

	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
	enc := filepath.Join(dir, "out", "encoded.txt")
	dec := filepath.Join(dir, "decoded.txt")

	if _, err := runCLI(t, append([]string{"encode", "-i", in, "-o", enc}, flags...)...); err != nil {
		t.Fatalf("encode: %v", err)
	}

	encoded, err := os.ReadFile(enc)
	if err != nil {
		t.Fatal(err)
	}

	if string(encoded) == input {
		t.Fatal("encoded text should differ from the input")
	}

	if _, err := runCLI(t, append([]string{"decode", "-i", enc, "-o", dec}, flags...)...); err != nil {
		t.Fatalf("decode: %v", err)
	}

	decoded, err := os.ReadFile(dec)
	if err != nil {
		t.Fatal(err)
	}

	if string(decoded) != input {
		t.Errorf("decoded = %q; want %q", decoded, input)
	}
}

func TestEncode_StdinStdout(t *testing.T) {
	flags := trainFixture(t)

	root := NewRootCmd()

	var out strings.Builder
	root.SetIn(strings.NewReader("buku itu. dia membaca\n"))
	root.SetOut(&out)
	root.SetArgs(append([]string{"encode", "--baseline"}, flags...))

	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	if err := root.Execute(); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if got, want := out.String(), "buku itu\ndia membaca\n"; got != want {
		t.Errorf("baseline encode = %q; want %q", got, want)
	}
}

func TestEncode_MissingArtifacts(t *testing.T) {
	_, err := runCLI(t, "encode", "--language", "ms", "--paths-artifact-dir", t.TempDir(), "-i", os.DevNull)
	if !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestVocabDecode(t *testing.T) {
	flags := trainFixture(t)
	dir := t.TempDir()

	model, _, err := artifact.LoadModel(flagValue(flags, "--paths-artifact-dir"))
	if err != nil {
		t.Fatal(err)
	}

	keys := model.Table.Keys()
	if len(keys) == 0 {
		t.Fatal("fixture model has no reductions")
	}
	sym, _ := model.Symbols.Symbol(keys[0].String())

	vocab := filepath.Join(dir, "splinter.vocab")
	content := "<unk>\t0\n▁" + string(sym) + "a\t-1.5\n"
	if err := os.WriteFile(vocab, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, append([]string{"vocab", "decode", "-i", vocab}, flags...)...)
	if err != nil {
		t.Fatalf("vocab decode: %v", err)
	}

	want := "<unk>\t0\n▁" + keys[0].String() + "a\t-1.5\n"
	if out != want {
		t.Errorf("vocab decode = %q; want %q", out, want)
	}
}

func TestDoctor_PassesOnTrainedArtifacts(t *testing.T) {
	flags := trainFixture(t)

	out, err := runCLI(t, append([]string{"doctor", "--sample", "makanan rumahnya bukunya"}, flags...)...)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}

	if !strings.Contains(out, "doctor checks passed") {
		t.Errorf("unexpected doctor output:\n%s", out)
	}
}

func TestDoctor_FailsOnEmptyDir(t *testing.T) {
	out, err := runCLI(t, "doctor", "--language", "ms", "--skip-corpus", "--paths-artifact-dir", t.TempDir())
	if err == nil {
		t.Fatal("expected doctor to fail without artifacts")
	}

	if !strings.Contains(out, "FAIL:") {
		t.Errorf("expected FAIL lines on stderr:\n%s", out)
	}
}

func TestBench_JSON(t *testing.T) {
	flags := trainFixture(t)

	out, err := runCLI(t, append([]string{"bench", "--runs", "2", "--format", "json"}, flags...)...)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	for _, want := range []string{`"mean_words_per_sec"`, `"fertility"`, `"tokens_per_word"`, `"11+"`} {
		if !strings.Contains(out, want) {
			t.Errorf("bench output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"sentencepiece"`) {
		t.Errorf("sentencepiece stats without a tokenizer model:\n%s", out)
	}
}

func TestBench_RejectsBadFlags(t *testing.T) {
	flags := trainFixture(t)

	if _, err := runCLI(t, append([]string{"bench", "--runs", "0"}, flags...)...); err == nil {
		t.Error("expected --runs 0 to fail")
	}

	if _, err := runCLI(t, append([]string{"bench", "--format", "xml"}, flags...)...); err == nil {
		t.Error("expected --format xml to fail")
	}
}

func TestTokenize_RequiresText(t *testing.T) {
	_, err := runCLI(t, "tokenize", "--language", "ms", "--paths-artifact-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "--text") {
		t.Fatalf("want --text error, got %v", err)
	}
}

func TestTokenize_NoModelAnywhere(t *testing.T) {
	flags := trainFixture(t)

	_, err := runCLI(t, append([]string{"tokenize", "--text", "makanan"}, flags...)...)
	if !errors.Is(err, tokenizer.ErrEmptyPath) {
		t.Fatalf("want ErrEmptyPath, got %v", err)
	}
}

func TestTokenize_CorpusFromBundle(t *testing.T) {
	modelPath := testutil.RequireTokenizerModel(t)
	flags := trainFixture(t)
	dir := t.TempDir()

	if _, err := runCLI(t, append([]string{"vocab", "attach", "--model", modelPath}, flags...)...); err != nil {
		t.Fatalf("vocab attach: %v", err)
	}

	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte("makanan di rumahnya\n\nbuku itu. dia membaca\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "ids.txt")

	if _, err := runCLI(t, append([]string{"tokenize", "-i", in, "-o", out}, flags...)...); err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want one line per input line, got %q", data)
	}
	if lines[0] == "" || lines[1] != "" || lines[2] == "" {
		t.Errorf("unexpected id lines %q", lines)
	}
	for _, id := range strings.Fields(lines[0] + " " + lines[2]) {
		if _, err := strconv.Atoi(id); err != nil {
			t.Errorf("non-numeric id %q", id)
		}
	}
}

func TestVocabAttach_RejectsInvalidModel(t *testing.T) {
	flags := trainFixture(t)
	dir := flagValue(flags, "--paths-artifact-dir")

	bad := filepath.Join(t.TempDir(), "bad.model")
	if err := os.WriteFile(bad, []byte("not a model"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, append([]string{"vocab", "attach", "--model", bad}, flags...)...); err == nil {
		t.Fatal("expected attach of an invalid model to fail")
	}
	if _, err := artifact.LoadTokenizer(dir); !errors.Is(err, artifact.ErrNoTokenizer) {
		t.Errorf("bundle changed by failed attach: %v", err)
	}
	if err := artifact.Verify(dir); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestEncode_LanguageMismatch(t *testing.T) {
	flags := trainFixture(t)
	flags[1] = "he"

	_, err := runCLI(t, append([]string{"encode", "-i", os.DevNull}, flags...)...)
	if !errors.Is(err, artifact.ErrLanguageMismatch) {
		t.Fatalf("want ErrLanguageMismatch, got %v", err)
	}
}

func TestTokenize_WithModel(t *testing.T) {
	modelPath := testutil.RequireTokenizerModel(t)
	flags := trainFixture(t)

	out, err := runCLI(t, append([]string{"tokenize", "--text", "makanan di rumahnya", "--model", modelPath}, flags...)...)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	if strings.TrimSpace(out) == "" {
		t.Error("expected at least one piece")
	}
}

type fakePieces []string

func (f fakePieces) Pieces(string) ([]string, error) { return f, nil }

func TestWritePieces(t *testing.T) {
	flags := trainFixture(t)

	model, _, err := artifact.LoadModel(flagValue(flags, "--paths-artifact-dir"))
	if err != nil {
		t.Fatal(err)
	}

	k := model.Table.Keys()[0]
	sym, _ := model.Symbols.Symbol(k.String())

	var out strings.Builder
	if err := writePieces(&out, fakePieces{"▁ab", string(sym)}, "", model.Symbols); err != nil {
		t.Fatal(err)
	}

	want := "▁ab\t▁ab\n" + string(sym) + "\t" + k.String() + "\n"
	if out.String() != want {
		t.Errorf("writePieces = %q; want %q", out.String(), want)
	}
}

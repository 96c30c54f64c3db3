package banter

import (
	"reflect"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// NORMALIZATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"punctuation only", "?!...", ""},
		{"lowercase and punctuation", "Привет, МИР!!", "привет мир"},
		{"yo folding", "Ёлка  —  ёж", "елка еж"},
		{"decomposed yo", "е\u0308ж", "еж"},
		{"collapse whitespace", "  hello \t\n  world  ", "hello world"},
		{"email splits", "user@mail.com", "user mail com"},
		{"digits kept", "2+2=4", "2 2 4"},
		{"mixed scripts", "Go и Python", "go и python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Привет, МИР!!",
		"Ёлка — ёж",
		"  The QUICK brown fox!  ",
		"ёж",
		"a.b.c",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENIZATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAnalyzer_Tokenize_RemovesStopWords(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	got := a.Tokenize("The cat is on the mat", true)
	want := []string{"cat", "on", "mat"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestAnalyzer_Tokenize_KeepsStopWords(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	got := a.Tokenize("The cat is on the mat", false)
	want := []string{"the", "cat", "is", "on", "the", "mat"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestAnalyzer_Tokenize_DropsShortTokens(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	got := a.Tokenize("я и ты a b", true)
	if len(got) != 0 {
		t.Errorf("Tokenize() = %v, want no tokens", got)
	}
}

func TestAnalyzer_Tokenize_Empty(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	got := a.Tokenize("", true)
	if got == nil {
		t.Fatal("Tokenize(\"\") returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestAnalyzer_Tokenize_CustomStopWords(t *testing.T) {
	config := DefaultAnalyzerConfig()
	config.StopWords = map[string]struct{}{"cat": {}}
	config.MinTokenLength = 3
	a := NewAnalyzer(config)

	got := a.Tokenize("the cat is on the mat", true)
	want := []string{"the", "the", "mat"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestDefaultStopWords_ReturnsCopy(t *testing.T) {
	first := DefaultStopWords()
	delete(first, "the")

	second := DefaultStopWords()
	if _, ok := second["the"]; !ok {
		t.Error("DefaultStopWords shares state between calls")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// STEMMING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSuffixStemmer_Stem(t *testing.T) {
	s := NewSuffixStemmer()

	tests := []struct {
		input string
		want  string
	}{
		{"cat", "cat"},
		{"все", "все"},
		{"программирование", "программиров"},
		{"играть", "игр"},
		{"кошками", "кошк"},
		{"футбол", "футбол"},
		{"connections", "connection"},
		{"ationing", "ation"},
		{"ation", "a"},
		{"ость", "ость"},
	}

	for _, tt := range tests {
		if got := s.Stem(tt.input); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuffixStemmer_NeverEmpty(t *testing.T) {
	s := NewSuffixStemmer()

	words := append(append([]string{}, russianSuffixes...), englishSuffixes...)
	words = append(words, "ings", "ness", "ationally", "ениями")

	for _, word := range words {
		if got := s.Stem(word); got == "" {
			t.Errorf("Stem(%q) returned empty string", word)
		}
	}
}

func TestSuffixStemmer_CustomFamilies(t *testing.T) {
	s := NewSuffixStemmerWithFamilies([]string{"er", "ers"})

	if got := s.Stem("walkers"); got != "walk" {
		t.Errorf("Stem(walkers) = %q, want %q", got, "walk")
	}
}

func TestSnowballStemmer_Stem(t *testing.T) {
	s := NewSnowballStemmer()

	tests := []struct {
		input string
		want  string
	}{
		{"running", "run"},
		{"книги", "книг"},
		{"cat", "cat"},
	}

	for _, tt := range tests {
		if got := s.Stem(tt.input); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PIPELINE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAnalyzer_Terms(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	got := a.Terms("Ещё раз: как ПРОГРАММИРОВАНИЕ?!")
	want := []string{"еще", "раз", "программиров"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}

func TestAnalyzer_Terms_Snowball(t *testing.T) {
	config := DefaultAnalyzerConfig()
	config.Stemmer = NewSnowballStemmer()
	a := NewAnalyzer(config)

	got := a.Terms("running cats")
	want := []string{"run", "cat"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}

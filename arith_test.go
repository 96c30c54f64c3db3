package banter

import (
	"errors"
	"strings"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXTRACTION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestExtractExpression(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"сколько будет 2,5 * 4?", "2.5 * 4"},
		{"calculate (1+2)/3 please", "(1+2)/3"},
		{"no math here", ""},
		{"2+2*3", "2+2*3"},
	}

	for _, tt := range tests {
		if got := ExtractExpression(tt.input); got != tt.want {
			t.Errorf("ExtractExpression(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// EVALUATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestEvaluateExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+2*3", 8},
		{"2+2*2", 6},
		{"(2+2)*2", 8},
		{"-3+5", 2},
		{"--2", 2},
		{"+4", 4},
		{"10/4", 2.5},
		{" 2.5 * 4 ", 10},
		{"((1))", 1},
		{"8 - 2 - 1", 5},
		{"16 / 4 / 2", 2},
	}

	for _, tt := range tests {
		got, err := EvaluateExpression(tt.expr)
		if err != nil {
			t.Errorf("EvaluateExpression(%q) error = %v", tt.expr, err)
			continue
		}
		if !approxEqual(got, tt.want) {
			t.Errorf("EvaluateExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvaluateExpression_Invalid(t *testing.T) {
	tests := []string{
		"",
		"+-",
		"2+2*",
		"(2",
		"2)",
		"2 3",
		"1.2.3",
		"1/0",
		"0/0",
		strings.Repeat("1+", 100) + "1",
		strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100),
	}

	for _, expr := range tests {
		if _, err := EvaluateExpression(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("EvaluateExpression(%.20q) error = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FORMATTING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{8, "8"},
		{100, "100"},
		{0, "0"},
		{2.5, "2.5"},
		{1.0 / 3.0, "0.3333"},
		{-1.25, "-1.25"},
		{-0.00001, "0"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.input); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

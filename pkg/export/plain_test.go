package export

import (
	"strings"
	"testing"
)

// forbiddenJargon is vocabulary that must never reach the user.
var forbiddenJargon = []string{
	"null",
	"nan",
	"impute",
	"imputation",
	"cardinality",
	"categorical",
	"encode",
	"encoding",
	"dtype",
	"dataframe",
	"stratif",
	"variance",
	"stddev",
	"regression",
	"classifier",
}

func assertPlainLanguage(t *testing.T, s string) {
	t.Helper()
	lower := strings.ToLower(s)
	for _, word := range forbiddenJargon {
		if strings.Contains(lower, word) {
			t.Fatalf("user-facing text contains jargon %q: %s", word, s)
		}
	}
}

func TestWarningsArePlainLanguage(t *testing.T) {
	for key, msg := range PlainWarnings {
		if msg == "" {
			t.Fatalf("warning %q is empty", key)
		}
		assertPlainLanguage(t, msg)
	}
	for key, msg := range PlainSummaries {
		if msg == "" {
			t.Fatalf("summary %q is empty", key)
		}
		assertPlainLanguage(t, msg)
	}
}

func TestCriticalWarningDetection(t *testing.T) {
	tests := []struct {
		name     string
		warnings []string
		want     bool
	}{
		{"empty", nil, false},
		{"benign", []string{PlainWarnings["small_dataset"], PlainWarnings["missing_values"]}, false},
		{"removed columns", []string{PlainWarnings["column_removed"]}, true},
		{"needs data", []string{PlainWarnings["not_enough_rows"]}, true},
		{"case insensitive", []string{"Columns COULDN'T BE USED here"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasCriticalWarning(tt.warnings); got != tt.want {
				t.Fatalf("hasCriticalWarning(%v) = %v, want %v", tt.warnings, got, tt.want)
			}
		})
	}
}

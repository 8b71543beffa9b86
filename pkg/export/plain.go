package export

import "strings"

// Everything the pipeline tells the user is drawn from these tables.
// The audience is people who do not know what an imputation or a
// cardinality is, so the wording stays in everyday language. Code that
// wants to surface a new condition adds a key here rather than
// formatting its own string.

// PlainWarnings maps warning keys to user-facing sentences.
var PlainWarnings = map[string]string{
	"missing_values":   "Some cells were empty - we filled them with typical values.",
	"rows_removed":     "Some rows had problems and were removed.",
	"column_removed":   "Some columns couldn't be used and were removed.",
	"high_cardinality": "A text column had many different values - rare ones were grouped together.",
	"text_encoded":     "Text columns were converted to numbers for analysis.",
	"small_dataset":    "Your dataset is on the smaller side - results may be less reliable.",
	"no_target":        "The column you want to predict wasn't found in the data.",
	"not_enough_rows":  "There isn't enough data yet - we need more data to work with.",
	"single_class":     "The column you want to predict always has the same value, so there is nothing to learn.",
	"no_features":      "There are no other columns to learn from.",
}

// PlainSummaries maps overall outcomes to user-facing sentences.
var PlainSummaries = map[string]string{
	"ready":     "Your data looks good and is ready to use.",
	"not_ready": "Your data needs some attention before it can be used.",
}

// criticalMarkers are substrings whose presence in a warning blocks
// readiness regardless of every other signal.
var criticalMarkers = []string{
	"too many empty",
	"couldn't be used",
	"need more data",
}

func hasCriticalWarning(warnings []string) bool {
	for _, w := range warnings {
		lower := strings.ToLower(w)
		for _, marker := range criticalMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

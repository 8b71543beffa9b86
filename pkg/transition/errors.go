package transition

import (
	"fmt"
	"strings"

	"github.com/intuitive-data/redesign/pkg/level"
)

// NoParentError is returned when an unfold is attempted on a scalar
// that has no recorded parent vector to reconstruct from.
type NoParentError struct {
	Level level.Level
}

func (e *NoParentError) Error() string {
	return fmt.Sprintf("no parent payload recorded at %s, descend through that level before unfolding", e.Level)
}

// OrphanNodeError rejects a built graph that contains nodes with no
// incident edge. The whole graph is discarded; callers that want the
// connected subgraph must opt into orphan removal explicitly.
type OrphanNodeError struct {
	Orphans     []string
	Suggestions []string
}

func (e *OrphanNodeError) Error() string {
	msg := fmt.Sprintf("graph validation failed: %d orphan node(s): %s",
		len(e.Orphans), strings.Join(e.Orphans, ", "))
	if len(e.Suggestions) > 0 {
		msg += ". Suggestions: " + strings.Join(e.Suggestions, "; ")
	}
	return msg
}

// ValidationError reports invalid input to a transition.
type ValidationError struct {
	Operation string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// Package constraint runs the ordered allergy/dislike/ledger checks that
// gate a search-intent utterance before it reaches the Pipeline Executor,
// and applies the patch that lets a confirmed-through request proceed.
package constraint

import (
	"strings"

	"github.com/Tangerg/lynx/pkg/sets"

	"github.com/sousline/sous/pkg/session"
)

// Outcome is the result of running the ordered checks against one utterance.
type Outcome struct {
	// Blocked is true when the allergy check fired; the request must not
	// proceed and no confirmation is possible.
	Blocked      bool
	BlockedNames []string
	Confirmation *session.PendingConfirmation
}

// Proceed reports whether the request may continue straight to the pipeline.
func (o Outcome) Proceed() bool {
	return !o.Blocked && o.Confirmation == nil
}

// Check runs the allergy, dislike, and ledger-conflict checks in order
// against utterance, given the session's personalization and current
// ledger/temporarily-allowed state. Only the first check that fires is
// reported; allergy beats dislike beats ledger-conflict.
func Check(utterance string, p session.Personalization, temporarilyAllowed sets.Set[string], effectiveRemoves sets.Set[string]) Outcome {
	lower := strings.ToLower(utterance)

	if p.Authenticated() {
		if matched := matchingSubstrings(lower, p.Allergies); len(matched) > 0 {
			return Outcome{Blocked: true, BlockedNames: matched}
		}

		if dislikes := matchingSubstrings(lower, p.Dislikes); len(dislikes) > 0 {
			remaining := excludeAllowed(dislikes, temporarilyAllowed)
			if len(remaining) > 0 {
				remainingSet := sets.NewHashSet[string](len(remaining))
				remainingSet.AddAll(remaining...)
				return Outcome{Confirmation: &session.PendingConfirmation{
					Kind:            session.ConfirmationDislike,
					Query:           utterance,
					MatchedDislikes: remainingSet,
				}}
			}
		}
	}

	if conflicts := matchingSubstrings(lower, effectiveRemoves); len(conflicts) > 0 {
		conflictSet := sets.NewHashSet[string](len(conflicts))
		conflictSet.AddAll(conflicts...)
		return Outcome{Confirmation: &session.PendingConfirmation{
			Kind:                  session.ConfirmationLedger,
			Query:                 utterance,
			ConflictedIngredients: conflictSet,
		}}
	}

	return Outcome{}
}

func matchingSubstrings(lowerUtterance string, names sets.Set[string]) []string {
	if names == nil {
		return nil
	}
	var matched []string
	for _, name := range names.ToSlice() {
		if name != "" && strings.Contains(lowerUtterance, strings.ToLower(name)) {
			matched = append(matched, name)
		}
	}
	return matched
}

func excludeAllowed(names []string, allowed sets.Set[string]) []string {
	if allowed == nil {
		return names
	}
	var remaining []string
	for _, n := range names {
		if !allowed.Contains(n) {
			remaining = append(remaining, n)
		}
	}
	return remaining
}

// ApplyDislikeConfirmation records matched names as temporarily allowed for
// the remainder of the session once the user confirms they want to proceed
// anyway.
func ApplyDislikeConfirmation(s *session.Session, matched []string) {
	for _, name := range matched {
		s.TemporarilyAllowedDislikes.Add(name)
	}
}

// ApplyLedgerConfirmation strips the conflict names from every ledger entry
// that names them, dropping entries that become empty.
func ApplyLedgerConfirmation(s *session.Session, conflicted []string) {
	conflictSet := sets.NewHashSet[string](len(conflicted))
	conflictSet.AddAll(conflicted...)
	s.PatchLedgerEntries(conflictSet)
}

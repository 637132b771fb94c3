package session

import (
	"time"

	"github.com/Tangerg/lynx/pkg/sets"
)

// ModificationType classifies a recipe-mutation utterance.
type ModificationType string

const (
	ModificationRemove  ModificationType = "remove"
	ModificationReplace ModificationType = "replace"
	ModificationAdd     ModificationType = "add"
	ModificationModify  ModificationType = "modify"
)

// ModificationEntry is one append-only ledger row produced by a RECIPE_MODIFY
// turn.
type ModificationEntry struct {
	Request           string
	Type              ModificationType
	RemoveIngredients sets.Set[string]
	AddIngredients    sets.Set[string]
	Timestamp         time.Time
}

// AppendModification appends a new entry to the session's ledger. The ledger
// is append-only: callers never rewrite or delete an entry directly, only
// this and PatchLedgerEntries ever touch Session.Ledger.
func (s *Session) AppendModification(entry ModificationEntry) {
	s.Ledger = append(s.Ledger, entry)
}

// EffectiveRemoveSet derives the ledger's accumulated remove-set: the union
// of RemoveIngredients across remove/replace entries, minus the union of
// AddIngredients across replace entries. It is recomputed from the ledger on
// every call rather than cached, so it can never diverge from the ledger.
func (s *Session) EffectiveRemoveSet() sets.Set[string] {
	removed := sets.NewHashSet[string]()
	added := sets.NewHashSet[string]()

	for _, entry := range s.Ledger {
		switch entry.Type {
		case ModificationRemove, ModificationReplace:
			if entry.RemoveIngredients != nil {
				removed.AddAll(entry.RemoveIngredients.ToSlice()...)
			}
		}
		if entry.Type == ModificationReplace && entry.AddIngredients != nil {
			added.AddAll(entry.AddIngredients.ToSlice()...)
		}
	}

	removed.RemoveAll(added.ToSlice()...)
	return removed
}

// PatchLedgerEntries implements the ledger-confirmation patch described for
// the constraint engine: every entry whose RemoveIngredients intersects
// conflictSet has those names stripped from that entry's remove-list.
// Entries that become empty as a result are dropped entirely.
func (s *Session) PatchLedgerEntries(conflictSet sets.Set[string]) {
	patched := s.Ledger[:0]
	for _, entry := range s.Ledger {
		if entry.RemoveIngredients != nil {
			entry.RemoveIngredients.RemoveAll(conflictSet.ToSlice()...)
		}
		if entry.Type == ModificationRemove || entry.Type == ModificationReplace {
			if entry.RemoveIngredients == nil || entry.RemoveIngredients.IsEmpty() {
				continue
			}
		}
		patched = append(patched, entry)
	}
	s.Ledger = patched
}

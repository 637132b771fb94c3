// Package dialog is the outer state machine: one Controller shared by every
// open channel, receiving each channel's inbound frames in arrival order and
// emitting exactly one terminal outbound frame per handled inbound message. It dispatches to
// the Intent Classifier, the Constraint Engine, and the Pipeline Executor,
// and owns the session's state transitions.
package dialog

import "github.com/sousline/sous/pkg/session"

// InboundFrame is the decoded shape of any client-sent message. Only the
// fields relevant to Type are populated; the zero value of the others is
// ignored by the handler for that type.
type InboundFrame struct {
	Type string `json:"type"`

	// init_context
	MemberInfo         *MemberInfo              `json:"member_info,omitempty"`
	InitialHistory     []HistoryTurn            `json:"initial_history,omitempty"`
	ModificationHistory []WireModificationEntry `json:"modification_history,omitempty"`

	// user_message
	Content string `json:"content,omitempty"`

	// constraint_confirmation / allergy_confirmation
	Confirmation string `json:"confirmation,omitempty"`
}

// MemberInfo is the wire shape of init_context's personalization payload.
type MemberInfo struct {
	MemberID  int      `json:"member_id"`
	Names     []string `json:"names"`
	Allergies []string `json:"allergies"`
	Dislikes  []string `json:"dislikes"`
	Utensils  []string `json:"utensils"`
}

// HistoryTurn is one prior message restored at init_context.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WireModificationEntry is the wire shape of a restored ledger entry.
type WireModificationEntry struct {
	Request          string   `json:"request"`
	Type             string   `json:"type"`
	RemoveIngredients []string `json:"remove_ingredients"`
	AddIngredients    []string `json:"add_ingredients"`
}

// OutboundFrame is the union of every frame the controller can emit. Only
// the fields relevant to Type are populated; json tags with omitempty keep
// the wire payload minimal per frame kind.
type OutboundFrame struct {
	Type string `json:"type"`

	// session_initialized
	SessionID   string `json:"session_id,omitempty"`
	DBSessionID string `json:"db_session_id,omitempty"`

	// thinking / progress / error
	Message string `json:"message,omitempty"`

	// agent_message / chat_external / allergy_warning / constraint_warning / allergy_dislike_detected
	Content             string                   `json:"content,omitempty"`
	Image               string                   `json:"image,omitempty"`
	HideImage           bool                     `json:"hideImage,omitempty"`
	ModificationHistory []WireModificationEntry  `json:"modification_history,omitempty"`

	MatchedDislikes       []string `json:"matched_dislikes,omitempty"`
	ConflictedIngredients []string `json:"conflicted_ingredients,omitempty"`
	ShowConfirmation      bool     `json:"show_confirmation,omitempty"`

	DetectedType  string   `json:"detected_type,omitempty"`
	DetectedItems []string `json:"detected_items,omitempty"`
	ShowButton    bool     `json:"show_button,omitempty"`
}

func wireLedger(entries []session.ModificationEntry) []WireModificationEntry {
	out := make([]WireModificationEntry, 0, len(entries))
	for _, e := range entries {
		var removes, adds []string
		if e.RemoveIngredients != nil {
			removes = e.RemoveIngredients.ToSlice()
		}
		if e.AddIngredients != nil {
			adds = e.AddIngredients.ToSlice()
		}
		out = append(out, WireModificationEntry{
			Request:           e.Request,
			Type:              string(e.Type),
			RemoveIngredients: removes,
			AddIngredients:    adds,
		})
	}
	return out
}

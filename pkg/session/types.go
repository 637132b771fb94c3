// Package session holds the per-connection dialog state: message history,
// personalization snapshot, modification ledger, and pending-confirmation
// slots. A Session is a value type owned by its channel handler and mutated
// only by that handler's own thread of control — no internal locking, since
// no other goroutine ever touches one. The registry of live sessions
// (Manager) is the only part of this package that needs a lock.
package session

import (
	"strings"
	"time"

	"github.com/Tangerg/lynx/pkg/sets"
	"github.com/google/uuid"
)

// Role identifies the speaker of one message log entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the message log.
type Message struct {
	Role    Role
	Content string
	Image   string // empty when the turn carries no image
}

// Personalization is the immutable-per-request snapshot captured at
// init_context: the union of allergies and dislikes across every family
// member linked to the authenticated member, plus their household names
// and available utensils.
type Personalization struct {
	MemberID  int
	Names     []string
	Allergies sets.Set[string]
	Dislikes  sets.Set[string]
	Utensils  sets.Set[string]
}

// Authenticated reports whether this snapshot belongs to a logged-in member.
// An unauthenticated session still flows through the dialog controller but
// skips every allergy/dislike-specific step.
func (p Personalization) Authenticated() bool {
	return p.MemberID != 0
}

// NewPersonalization builds a snapshot from plain string slices, as received
// on the wire in the init_context frame.
func NewPersonalization(memberID int, names, allergies, dislikes, utensils []string) Personalization {
	p := Personalization{
		MemberID:  memberID,
		Names:     names,
		Allergies: sets.NewHashSet[string](len(allergies)),
		Dislikes:  sets.NewHashSet[string](len(dislikes)),
		Utensils:  sets.NewHashSet[string](len(utensils)),
	}
	p.Allergies.AddAll(allergies...)
	p.Dislikes.AddAll(dislikes...)
	p.Utensils.AddAll(utensils...)
	return p
}

// ConfirmationKind distinguishes the two mutually exclusive pending-
// confirmation variants. The zero value means no confirmation is pending.
type ConfirmationKind string

const (
	ConfirmationDislike ConfirmationKind = "dislike"
	ConfirmationLedger  ConfirmationKind = "ledger"
)

// PendingConfirmation is a single field on Session rather than two
// independent booleans, so a session can never simultaneously hold a
// dislike-pending and a ledger-pending confirmation.
type PendingConfirmation struct {
	Kind  ConfirmationKind
	Query string

	// MatchedDislikes is populated only when Kind == ConfirmationDislike.
	MatchedDislikes sets.Set[string]

	// ConflictedIngredients is populated only when Kind == ConfirmationLedger.
	ConflictedIngredients sets.Set[string]
}

// Document is the opaque retrieval output the core passes around without
// ever mutating. Defined here (rather than in pkg/retrieval) so pkg/session
// has no dependency on the retrieval gateway package.
type Document struct {
	Title      string
	Content    string
	CookTime   string
	Difficulty string
	RecipeID   string
}

// Session is the live conversational context tied to one open channel.
type Session struct {
	ID          uuid.UUID
	DBSessionID uuid.UUID

	MessageLog      []Message
	Personalization Personalization
	Ledger          []ModificationEntry

	// TemporarilyAllowedDislikes only ever grows within a session's
	// lifetime; it is never reset.
	TemporarilyAllowedDislikes sets.Set[string]

	// Pending is nil when no confirmation is outstanding.
	Pending *PendingConfirmation

	LastDocuments          []Document
	LastAssistantResponse  string
	LastAssistantImage     string

	CreatedAt time.Time
}

// New creates a freshly initialized session for one opened channel.
func New(id uuid.UUID, personalization Personalization) *Session {
	return &Session{
		ID:                         id,
		MessageLog:                 nil,
		Personalization:            personalization,
		Ledger:                     nil,
		TemporarilyAllowedDislikes: sets.NewHashSet[string](),
		CreatedAt:                  time.Now(),
	}
}

// AppendMessage records one turn in the message log.
func (s *Session) AppendMessage(role Role, content, image string) {
	s.MessageLog = append(s.MessageLog, Message{Role: role, Content: content, Image: image})
}

// ClearPending resolves the current pending confirmation, regardless of kind.
// Per the data-model invariant, this must happen before any further
// processing of the session continues.
func (s *Session) ClearPending() {
	s.Pending = nil
}

// HasRecentRecipe reports whether the most recent assistant turn in the
// message log looks like a recipe, using the same structural marker the
// Intent Classifier relies on: a "재료:" ingredient header plus at least one
// of the canonical metadata glyphs.
func (s *Session) HasRecentRecipe() bool {
	for i := len(s.MessageLog) - 1; i >= 0; i-- {
		msg := s.MessageLog[i]
		if msg.Role != RoleAssistant {
			continue
		}
		return looksLikeRecipe(msg.Content)
	}
	return false
}

// FindMostRecentRecipe searches the message log newest-first for the last
// assistant turn that looks like a recipe, returning its text and image.
func (s *Session) FindMostRecentRecipe() (content, image string, ok bool) {
	for i := len(s.MessageLog) - 1; i >= 0; i-- {
		msg := s.MessageLog[i]
		if msg.Role != RoleAssistant {
			continue
		}
		if looksLikeRecipe(msg.Content) {
			return msg.Content, msg.Image, true
		}
	}
	return "", "", false
}

func looksLikeRecipe(text string) bool {
	if !containsIngredientHeader(text) {
		return false
	}
	return containsAnyGlyph(text)
}

const ingredientHeader = "재료:"

func containsIngredientHeader(text string) bool {
	return strings.Contains(text, ingredientHeader)
}

// recipeGlyphs are the per-recipe metadata glyphs the Post-Processor emits
// on the metadata line (cook time, difficulty, servings).
var recipeGlyphs = []string{"⏱️", "📊", "👥"}

func containsAnyGlyph(text string) bool {
	for _, g := range recipeGlyphs {
		if strings.Contains(text, g) {
			return true
		}
	}
	return false
}

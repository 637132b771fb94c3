package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tangerg/lynx/pkg/sets"
	"github.com/google/uuid"

	"github.com/sousline/sous/pkg/classifier"
	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/constraint"
	"github.com/sousline/sous/pkg/extractor"
	"github.com/sousline/sous/pkg/llmgateway"
	"github.com/sousline/sous/pkg/pipeline"
	"github.com/sousline/sous/pkg/session"
	"github.com/sousline/sous/pkg/store"
)

// neutralDeclineReply is sent when a pending confirmation resolves negatively.
const neutralDeclineReply = "네, 알겠습니다. 다른 메뉴를 찾아볼까요?"

// Sender delivers one outbound frame for the connection a Controller call is
// handling. thinking/progress frames are advisory; callers must not assume
// their delivery is observed before the terminal frame for the same inbound
// message is sent.
type Sender func(OutboundFrame)

// Controller is the outer per-process state machine. It holds no
// per-connection state itself — every method takes the *session.Session the
// caller's connection owns, so a single Controller is shared, read-only,
// across every concurrently open connection.
type Controller struct {
	llm          *llmgateway.Gateway
	classifier   *classifier.Classifier
	declDetector *classifier.DeclarationDetector
	extractor    *extractor.Extractor
	pipeline     *pipeline.Executor
	store        *store.Client // nil-safe: persistence is best-effort audit only
	cfg          config.PipelineConfig
}

// New wires a Controller from its already-constructed dependencies. store
// may be nil, in which case chat turns and session rows are simply not
// persisted; no control-flow decision ever depends on that succeeding.
func New(llm *llmgateway.Gateway, cl *classifier.Classifier, decl *classifier.DeclarationDetector, ext *extractor.Extractor, exec *pipeline.Executor, storeClient *store.Client, cfg config.PipelineConfig) *Controller {
	return &Controller{
		llm:          llm,
		classifier:   cl,
		declDetector: decl,
		extractor:    ext,
		pipeline:     exec,
		store:        storeClient,
		cfg:          cfg,
	}
}

// InitSession handles the init_context frame: it builds a fresh Session from
// the wire payload, restores any prior history/ledger the client supplied,
// opens a durable session row best-effort, and returns the session plus its
// session_initialized frame. The caller registers the session and feeds all
// further frames for this connection through Handle.
func (c *Controller) InitSession(ctx context.Context, frame InboundFrame) (*session.Session, OutboundFrame) {
	var info MemberInfo
	if frame.MemberInfo != nil {
		info = *frame.MemberInfo
	}

	p := session.NewPersonalization(info.MemberID, info.Names, info.Allergies, info.Dislikes, info.Utensils)
	sess := session.New(uuid.New(), p)

	for _, turn := range frame.InitialHistory {
		role := session.RoleUser
		if turn.Role == string(session.RoleAssistant) {
			role = session.RoleAssistant
		}
		sess.AppendMessage(role, turn.Content, "")
	}

	for _, entry := range frame.ModificationHistory {
		sess.AppendModification(wireToModificationEntry(entry))
	}

	sess.DBSessionID = c.openStoreSession(ctx, info.MemberID)

	return sess, OutboundFrame{
		Type:        "session_initialized",
		SessionID:   sess.ID.String(),
		DBSessionID: sess.DBSessionID.String(),
	}
}

func (c *Controller) openStoreSession(ctx context.Context, memberID int) uuid.UUID {
	if c.store == nil || memberID == 0 {
		return uuid.Nil
	}
	dbMemberID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("member:%d", memberID)))
	dbSessionID, err := c.store.OpenSession(ctx, dbMemberID)
	if err != nil {
		slog.Warn("failed to open durable session row", "member_id", memberID, "error", err)
		return uuid.Nil
	}
	return dbSessionID
}

// Close releases a session's durable row on disconnect. Best-effort.
func (c *Controller) Close(ctx context.Context, sess *session.Session) {
	if c.store == nil || sess.DBSessionID == uuid.Nil {
		return
	}
	if err := c.store.CloseSession(ctx, sess.DBSessionID); err != nil {
		slog.Warn("failed to close durable session row", "session_id", sess.ID, "error", err)
	}
}

// Handle processes one inbound frame for sess. For a frame it handles, it
// sends zero or more advisory frames and exactly one terminal frame through
// send before returning; a frame ignored as a protocol violation (a repeat
// init_context, a confirmation in the wrong state, an unknown type) sends
// nothing. sess
// is mutated only by this call — the caller must serialize calls to Handle
// for the same session (e.g. by driving them from that connection's single
// read-loop goroutine).
func (c *Controller) Handle(ctx context.Context, sess *session.Session, frame InboundFrame, send Sender) {
	switch frame.Type {
	case "init_context":
		// Handled by InitSession before the session exists; a repeat
		// init_context on an already-initialized connection is a protocol
		// violation and is ignored.
		slog.Warn("init_context received on an already-initialized session", "session_id", sess.ID)

	case "user_message":
		c.handleUserMessage(ctx, sess, frame.Content, send)

	case "constraint_confirmation":
		c.handleConfirmation(ctx, sess, session.ConfirmationLedger, frame.Confirmation, send)

	case "allergy_confirmation":
		c.handleConfirmation(ctx, sess, session.ConfirmationDislike, frame.Confirmation, send)

	default:
		slog.Warn("unknown inbound frame type, ignoring", "type", frame.Type, "session_id", sess.ID)
	}
}

func (c *Controller) handleUserMessage(ctx context.Context, sess *session.Session, content string, send Sender) {
	if sess.Pending != nil {
		slog.Warn("user_message received while a confirmation was pending; abandoning it", "session_id", sess.ID, "pending_kind", sess.Pending.Kind)
		sess.ClearPending()
	}

	sess.AppendMessage(session.RoleUser, content, "")
	c.persistTurn(ctx, sess, store.ChatRoleUser, content)

	hasRecentRecipe := sess.HasRecentRecipe()
	intent := c.classifier.Classify(ctx, content, hasRecentRecipe)

	switch intent {
	case classifier.IntentNotCooking:
		if c.emitDeclarationIfAny(ctx, sess, content, hasRecentRecipe, send) {
			return
		}
		reply := "요리와 관련된 질문을 도와드릴 수 있어요. 어떤 요리를 찾아드릴까요?"
		c.finishWithAssistantReply(ctx, sess, reply, "", false, send, OutboundFrame{Type: "chat_external", Content: reply})

	case classifier.IntentCookingQuestion:
		if c.emitDeclarationIfAny(ctx, sess, content, hasRecentRecipe, send) {
			return
		}
		answer := c.answerCookingQuestion(ctx, content)
		c.finishWithAssistantReply(ctx, sess, answer, "", false, send, OutboundFrame{Type: "agent_message", Content: answer})

	case classifier.IntentRecipeModify:
		if c.runModification(ctx, sess, content, send) {
			return
		}
		c.runSearch(ctx, sess, content, send)

	default: // IntentRecipeSearch
		c.runSearch(ctx, sess, content, send)
	}
}

// emitDeclarationIfAny runs the Allergy/Dislike Declaration Detector for
// intents other than RECIPE_SEARCH/RECIPE_MODIFY, per §4.1, and — when it
// fires — sends the allergy_dislike_detected terminal frame in place of the
// intent's ordinary reply. Returns true when it did so.
func (c *Controller) emitDeclarationIfAny(ctx context.Context, sess *session.Session, content string, hasRecentRecipe bool, send Sender) bool {
	if !sess.Personalization.Authenticated() {
		return false
	}

	decl := c.declDetector.Detect(ctx, content, hasRecentRecipe)
	if decl.Kind == classifier.DeclarationNone {
		return false
	}

	send(OutboundFrame{
		Type:          "allergy_dislike_detected",
		Content:       declarationPrompt(decl),
		DetectedType:  string(decl.Kind),
		DetectedItems: decl.Items,
		ShowButton:    true,
	})
	return true
}

func declarationPrompt(decl classifier.Declaration) string {
	if decl.Kind == classifier.DeclarationAllergy {
		return "알레르기 정보를 등록해드릴까요?"
	}
	return "비선호 재료로 등록해드릴까요?"
}

func (c *Controller) answerCookingQuestion(ctx context.Context, content string) string {
	prompt := fmt.Sprintf("다음 요리 관련 질문에 간결하게 답하세요.\n\n질문: %s\n\n답변:", content)
	result, err := c.llm.Complete(ctx, llmgateway.CompletionRequest{
		Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "죄송해요, 지금은 답변을 드리기 어려워요. 잠시 후 다시 시도해주세요."
	}
	return result.Content
}

// runModification executes the single-shot modification path. Returns true
// if it produced a terminal frame (success); false means the caller must
// fall back to the search path (no prior recipe was found).
func (c *Controller) runModification(ctx context.Context, sess *session.Session, content string, send Sender) bool {
	priorRecipe, priorImage, ok := sess.FindMostRecentRecipe()
	if !ok {
		return false
	}

	modType := classifyModificationType(content)
	result, err := c.pipeline.RunModification(ctx, c.extractor, pipeline.ModificationRequest{
		Utterance:   content,
		PriorRecipe: priorRecipe,
		PriorImage:  priorImage,
		ModType:     modType,
	})
	if err != nil {
		return false
	}

	sess.AppendModification(result.LedgerEntry)
	logAccounting(sess, "modify", "success", result.Accounting)
	c.finishWithAssistantReply(ctx, sess, result.Content, result.Image, result.HideImage, send, OutboundFrame{
		Type:                "agent_message",
		Content:             result.Content,
		Image:               result.Image,
		HideImage:           result.HideImage,
		ModificationHistory: wireLedger(sess.Ledger),
	})
	return true
}

// runSearch runs the Constraint Engine, then — if it doesn't block or
// require confirmation — the search pipeline, bounded by the configured
// per-request deadline.
func (c *Controller) runSearch(ctx context.Context, sess *session.Session, query string, send Sender) {
	outcome := constraint.Check(query, sess.Personalization, sess.TemporarilyAllowedDislikes, sess.EffectiveRemoveSet())

	switch {
	case outcome.Blocked:
		content := fmt.Sprintf("죄송해요, %s 알레르기가 있으셔서 이 요청은 도와드릴 수 없어요.", joinNames(outcome.BlockedNames))
		c.finishWithAssistantReply(ctx, sess, content, "", false, send, OutboundFrame{Type: "agent_message", Content: content})

	case outcome.Confirmation != nil:
		sess.Pending = outcome.Confirmation
		c.emitConfirmationPrompt(send, outcome.Confirmation)

	default:
		c.runPipelineSearch(ctx, sess, query, send)
	}
}

func (c *Controller) emitConfirmationPrompt(send Sender, pending *session.PendingConfirmation) {
	switch pending.Kind {
	case session.ConfirmationDislike:
		names := pending.MatchedDislikes.ToSlice()
		send(OutboundFrame{
			Type:             "allergy_warning",
			Content:          fmt.Sprintf("%s(을)를 싫어하시는 걸로 알고 있어요. 그래도 진행할까요?", joinNames(names)),
			MatchedDislikes:  names,
			ShowConfirmation: true,
		})
	case session.ConfirmationLedger:
		names := pending.ConflictedIngredients.ToSlice()
		send(OutboundFrame{
			Type:                  "constraint_warning",
			Content:               fmt.Sprintf("앞서 %s(을)를 빼달라고 하셨어요. 이번엔 포함해서 진행할까요?", joinNames(names)),
			ConflictedIngredients: names,
			ShowConfirmation:      true,
		})
	}
}

func (c *Controller) handleConfirmation(ctx context.Context, sess *session.Session, expected session.ConfirmationKind, confirmation string, send Sender) {
	if sess.Pending == nil || sess.Pending.Kind != expected {
		slog.Warn("confirmation received in the wrong state, ignoring", "session_id", sess.ID, "expected", expected)
		return
	}

	pending := sess.Pending
	sess.ClearPending()

	if confirmation != "yes" {
		c.finishWithAssistantReply(ctx, sess, neutralDeclineReply, "", false, send, OutboundFrame{Type: "agent_message", Content: neutralDeclineReply})
		return
	}

	switch pending.Kind {
	case session.ConfirmationDislike:
		constraint.ApplyDislikeConfirmation(sess, pending.MatchedDislikes.ToSlice())
	case session.ConfirmationLedger:
		constraint.ApplyLedgerConfirmation(sess, pending.ConflictedIngredients.ToSlice())
	}

	c.runPipelineSearch(ctx, sess, pending.Query, send)
}

func (c *Controller) runPipelineSearch(ctx context.Context, sess *session.Session, query string, send Sender) {
	deadline := c.cfg.RequestDeadline
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	send(OutboundFrame{Type: "thinking", Message: "레시피 검색 중..."})

	onProgress := func(stage pipeline.StageName, elapsed time.Duration) {
		send(OutboundFrame{Type: "progress", Message: fmt.Sprintf("%s (%.0f초 경과)", stage, elapsed.Seconds())})
	}

	result, err := c.pipeline.RunSearch(runCtx, pipeline.SearchRequest{
		Query:            query,
		History:          sess.MessageLog,
		Personalization:  sess.Personalization,
		EffectiveRemoves: sess.EffectiveRemoveSet(),
	}, onProgress)

	if result != nil {
		sess.LastDocuments = result.Documents
	}

	if err != nil || runCtx.Err() != nil {
		elapsed := deadline.Seconds()
		if result != nil {
			elapsed = result.Accounting.TotalElapsed().Seconds()
			logAccounting(sess, "search", "timeout", result.Accounting)
		}
		content := fmt.Sprintf("요청 처리 시간이 초과되었습니다 (%.0f초 경과). 다시 시도해주세요.", elapsed)
		c.finishWithAssistantReply(ctx, sess, content, "", false, send, OutboundFrame{Type: "agent_message", Content: content})
		return
	}

	logAccounting(sess, "search", "success", result.Accounting)

	content := result.Content
	if result.ConstraintWarning != "" {
		content = result.ConstraintWarning + "\n\n" + content
	}

	c.finishWithAssistantReply(ctx, sess, content, "", false, send, OutboundFrame{Type: "agent_message", Content: content})
}

// logAccounting emits the per-stage token and timing breakdown for one
// pipeline run, win or lose, per the accounting contract.
func logAccounting(sess *session.Session, path, outcome string, acc *pipeline.Accounting) {
	if acc == nil {
		return
	}
	slog.Info("pipeline accounting",
		"session_id", sess.ID,
		"path", path,
		"outcome", outcome,
		"total_tokens", acc.TotalTokens(),
		"total_elapsed_ms", acc.TotalElapsed().Milliseconds(),
		"stage_tokens", acc.Tokens,
		"stage_timings", acc.Timings,
	)
}

func (c *Controller) finishWithAssistantReply(ctx context.Context, sess *session.Session, content, image string, hideImage bool, send Sender, frame OutboundFrame) {
	sess.AppendMessage(session.RoleAssistant, content, image)
	sess.LastAssistantResponse = content
	sess.LastAssistantImage = image
	c.persistTurn(ctx, sess, store.ChatRoleAgent, content)
	send(frame)
}

func (c *Controller) persistTurn(ctx context.Context, sess *session.Session, role store.ChatRole, content string) {
	if c.store == nil || sess.DBSessionID == uuid.Nil {
		return
	}
	if err := c.store.AppendChatMessage(ctx, sess.DBSessionID, role, content); err != nil {
		slog.Warn("failed to persist chat turn", "session_id", sess.ID, "error", err)
	}
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		out := names[0]
		for _, n := range names[1:] {
			out += ", " + n
		}
		return out
	}
}

func wireToModificationEntry(w WireModificationEntry) session.ModificationEntry {
	return session.ModificationEntry{
		Request:           w.Request,
		Type:              session.ModificationType(w.Type),
		RemoveIngredients: setFromSlice(w.RemoveIngredients),
		AddIngredients:    setFromSlice(w.AddIngredients),
	}
}

func setFromSlice(items []string) sets.Set[string] {
	s := sets.NewHashSet[string](len(items))
	s.AddAll(items...)
	return s
}

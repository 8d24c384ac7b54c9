package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/ai"
	"github.com/umt-ai/unibot/internal/model"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/pkg/timeutil"
	"github.com/umt-ai/unibot/internal/repo"
	"github.com/umt-ai/unibot/internal/topic"
)

const systemPersona = "You are UniBot for University of Management And Technology. " +
	"Answer the user's questions based on the provided content. Give answer correctly " +
	"and in detail and you should not apologize frequently. Avoid suggesting the user visit the website."

const chatTemperature = 0.1

// ChatService orchestrates a conversation turn: grounding decision,
// completion, prompt embedding, the atomic turn commit and the full topic
// recompute over the session's utterance history.
type ChatService struct {
	users      *repo.UserRepo
	sessions   *repo.SessionRepo
	documents  *repo.DocumentRepo
	chatter    ai.IChatter
	embedder   ai.IEmbedder
	inferencer topic.Inferencer
}

func NewChatService(
	users *repo.UserRepo,
	sessions *repo.SessionRepo,
	documents *repo.DocumentRepo,
	chatter ai.IChatter,
	embedder ai.IEmbedder,
	inferencer topic.Inferencer,
) *ChatService {
	return &ChatService{
		users:      users,
		sessions:   sessions,
		documents:  documents,
		chatter:    chatter,
		embedder:   embedder,
		inferencer: inferencer,
	}
}

type TurnResult struct {
	Username  string `json:"username"`
	Response  string `json:"response"`
	Topic     string `json:"topic"`
	SessionID string `json:"session_id"`
}

type HistoryMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type SessionHistory struct {
	SessionID string           `json:"session_id"`
	Topic     string           `json:"topic"`
	Messages  []HistoryMessage `json:"messages"`
}

// StartSession allocates a fresh session for the user. Identifiers are
// ChatSession_<n>, scoped and monotonically increasing per user.
func (s *ChatService) StartSession(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	session, err := s.allocateSession(ctx, user.ID)
	if err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Info("session started", zap.String("user", username), zap.String("session_id", session.SessionID))
	return session.SessionID, nil
}

func (s *ChatService) allocateSession(ctx context.Context, userID string) (*model.Session, error) {
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnixMilli()
	session := &model.Session{
		UserID:    userID,
		SessionID: fmt.Sprintf("ChatSession_%d", count+1),
		StartTime: now,
		Ctime:     now,
	}
	// Racing allocations for the same user collide on the (user_id,
	// session_id) key and surface as a conflict instead of overwriting.
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// HandleUtterance runs one conversation turn. The completion and the
// prompt embedding must both succeed before anything is persisted; the
// interaction append, topic update and end-time refresh then commit as a
// single transaction.
func (s *ChatService) HandleUtterance(ctx context.Context, username, sessionID, text string) (*TurnResult, error) {
	if text == "" {
		return nil, appErr.ErrInvalid
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user", username))

	var session *model.Session
	if sessionID == "" {
		session, err = s.allocateSession(ctx, user.ID)
	} else {
		session, err = s.sessions.Get(ctx, user.ID, sessionID)
	}
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("session_id", session.SessionID))

	prior, err := s.sessions.ListInteractions(ctx, user.ID, session.SessionID)
	if err != nil {
		return nil, err
	}

	req := &ai.ChatRequest{
		System:      []string{systemPersona},
		Prompt:      text,
		Temperature: chatTemperature,
	}
	doc, err := s.groundingDocument(ctx, user.ID, text)
	if err != nil {
		return nil, fmt.Errorf("resolve active document: %w", err)
	}
	if doc != nil {
		logger.Debug("grounding response in document", zap.String("doc_id", doc.ID))
		req.System = append(req.System, "Here is the document content for reference: "+doc.Content)
	}
	for _, itx := range prior {
		req.History = append(req.History,
			ai.Message{Role: ai.RoleUser, Text: itx.UserText},
			ai.Message{Role: ai.RoleModel, Text: itx.ResponseText},
		)
	}

	response, err := s.chatter.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	embedding, err := s.embedder.Embed(ctx, text, ai.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed prompt: %w", err)
	}

	// Topic is always re-derived over every utterance of the session,
	// including this one.
	utterances := make([]string, 0, len(prior)+1)
	for _, itx := range prior {
		utterances = append(utterances, itx.UserText)
	}
	utterances = append(utterances, text)
	label, err := s.inferencer.InferTopic(ctx, utterances)
	if err != nil {
		return nil, fmt.Errorf("infer topic: %w", err)
	}

	now := timeutil.NowUnixMilli()
	itx := &model.Interaction{
		UserID:       user.ID,
		SessionID:    session.SessionID,
		UserText:     text,
		ResponseText: response,
		Embedding:    embedding,
		Ctime:        now,
	}
	if err := s.sessions.AppendTurn(ctx, itx, label, now); err != nil {
		return nil, err
	}
	logger.Info("turn committed", zap.String("topic", label), zap.Int("prior_turns", len(prior)))

	return &TurnResult{
		Username:  username,
		Response:  response,
		Topic:     label,
		SessionID: session.SessionID,
	}, nil
}

// groundingDocument returns the user's active document when the utterance
// asks for it: the document exists and the text mentions "generate quiz"
// or "document", case-insensitively. Otherwise the turn is answered from
// conversation context alone. A failed lookup aborts the turn; only a
// missing document degrades to ungrounded.
func (s *ChatService) groundingDocument(ctx context.Context, userID, text string) (*model.Document, error) {
	if !wantsDocumentContext(text) {
		return nil, nil
	}
	doc, err := s.documents.GetLatestByUser(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func wantsDocumentContext(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "generate quiz") || strings.Contains(lowered, "document")
}

// History lists every session of the user with its topic and the ordered
// user/bot message pairs. Sessions without an inferred topic show as
// "General".
func (s *ChatService) History(ctx context.Context, username string) ([]*SessionHistory, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	history := make([]*SessionHistory, 0, len(sessions))
	for _, session := range sessions {
		interactions, err := s.sessions.ListInteractions(ctx, user.ID, session.SessionID)
		if err != nil {
			return nil, err
		}
		label := session.Topic
		if label == "" {
			label = model.TopicGeneral
		}
		entry := &SessionHistory{
			SessionID: session.SessionID,
			Topic:     label,
			Messages:  make([]HistoryMessage, 0, len(interactions)*2),
		}
		for _, itx := range interactions {
			entry.Messages = append(entry.Messages,
				HistoryMessage{Type: "user", Text: itx.UserText},
				HistoryMessage{Type: "bot", Text: itx.ResponseText},
			)
		}
		history = append(history, entry)
	}
	return history, nil
}

// DeleteByTopic removes all sessions of the user whose topic label equals
// the given string exactly; zero matches is a not-found outcome and
// mutates nothing.
func (s *ChatService) DeleteByTopic(ctx context.Context, username, label string) (int64, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	deleted, err := s.sessions.DeleteByTopic(ctx, user.ID, label)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, appErr.ErrNotFound
	}
	logutil.GetLogger(ctx).Info("sessions deleted by topic",
		zap.String("user", username), zap.String("topic", label), zap.Int64("count", deleted))
	return deleted, nil
}

// EndSession stamps the session's end time. Turns keep refreshing the
// same field afterwards, so in practice it tracks last activity.
func (s *ChatService) EndSession(ctx context.Context, username, sessionID string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.sessions.SetEndTime(ctx, user.ID, sessionID, timeutil.NowUnixMilli())
}

package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/umt-ai/unibot/internal/ai"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/repo"
	"github.com/umt-ai/unibot/internal/service"
	"github.com/umt-ai/unibot/internal/topic"
	"github.com/umt-ai/unibot/test/testutil"
)

type fakeChatter struct {
	requests []*ai.ChatRequest
	response string
}

func (f *fakeChatter) Chat(ctx context.Context, req *ai.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, nil
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	return make([]float32, 768), nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embedding"
}

type fakeGenerator struct {
	label   string
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.label, nil
}

type fixture struct {
	db        *sql.DB
	auth      *service.AuthService
	documents *service.DocumentService
	chat      *service.ChatService
	chatter   *fakeChatter
	embedder  *fakeEmbedder
	generator *fakeGenerator
}

func setup(t *testing.T) (*fixture, func()) {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)

	userRepo := repo.NewUserRepo(db)
	sessionRepo := repo.NewSessionRepo(db)
	documentRepo := repo.NewDocumentRepo(db)

	chatter := &fakeChatter{response: "the answer"}
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{label: "Exam schedule"}

	f := &fixture{
		db:        db,
		auth:      service.NewAuthService(userRepo, []byte("test-secret"), time.Hour),
		documents: service.NewDocumentService(userRepo, documentRepo, embedder, nil, 8192),
		chat: service.NewChatService(
			userRepo, sessionRepo, documentRepo,
			chatter, embedder, topic.NewLDAInferencer(generator),
		),
		chatter:   chatter,
		embedder:  embedder,
		generator: generator,
	}
	return f, cleanup
}

func registerUser(t *testing.T, f *fixture) string {
	t.Helper()
	username := fmt.Sprintf("student-%d-%d", time.Now().UnixNano(), testCounter())
	_, err := f.auth.Register(context.Background(), username, "secret")
	require.NoError(t, err)
	return username
}

var counter int

func testCounter() int {
	counter++
	return counter
}

func TestHandleUtteranceUnknownUser(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()

	_, err := f.chat.HandleUtterance(context.Background(), "ghost", "", "hello there")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestHandleUtteranceAllocatesPerUserSessionIDs(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	first, err := f.chat.HandleUtterance(context.Background(), username, "", "when is the exam schedule announced")
	require.NoError(t, err)
	require.Equal(t, "ChatSession_1", first.SessionID)

	second, err := f.chat.HandleUtterance(context.Background(), username, "", "what about fee structure")
	require.NoError(t, err)
	require.Equal(t, "ChatSession_2", second.SessionID)

	other := registerUser(t, f)
	theirFirst, err := f.chat.HandleUtterance(context.Background(), other, "", "library timings question")
	require.NoError(t, err)
	require.Equal(t, "ChatSession_1", theirFirst.SessionID)
}

func TestHandleUtteranceAccumulatesInteractionsAndHistory(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	result, err := f.chat.HandleUtterance(context.Background(), username, "", "exam schedule for fall semester")
	require.NoError(t, err)
	sessionID := result.SessionID

	for i := 2; i <= 4; i++ {
		result, err = f.chat.HandleUtterance(context.Background(), username, sessionID,
			fmt.Sprintf("followup exam question number %d", i))
		require.NoError(t, err)
		require.Equal(t, sessionID, result.SessionID)
		require.Equal(t, "the answer", result.Response)
		require.Equal(t, "Exam schedule", result.Topic)
	}

	history, err := f.chat.History(context.Background(), username)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Exam schedule", history[0].Topic)
	require.Len(t, history[0].Messages, 8)
	require.Equal(t, "user", history[0].Messages[0].Type)
	require.Equal(t, "exam schedule for fall semester", history[0].Messages[0].Text)
	require.Equal(t, "bot", history[0].Messages[7].Type)

	// Every turn re-derives the topic from the full utterance history.
	require.Len(t, f.generator.prompts, 4)

	// The fourth turn should have replayed the three prior pairs.
	lastReq := f.chatter.requests[len(f.chatter.requests)-1]
	require.Len(t, lastReq.History, 6)
	require.Equal(t, ai.RoleUser, lastReq.History[0].Role)
	require.Equal(t, ai.RoleModel, lastReq.History[1].Role)
	require.InDelta(t, 0.1, lastReq.Temperature, 1e-6)
}

func TestGroundingUsesDocumentOnlyOnKeywordMatch(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, err := f.documents.Ingest(context.Background(), username, "handbook.txt", []byte("admission handbook contents"))
	require.NoError(t, err)

	_, err = f.chat.HandleUtterance(context.Background(), username, "", "Generate Quiz please")
	require.NoError(t, err)
	grounded := f.chatter.requests[len(f.chatter.requests)-1]
	require.Len(t, grounded.System, 2)
	require.Contains(t, grounded.System[1], "admission handbook contents")

	_, err = f.chat.HandleUtterance(context.Background(), username, "", "hello")
	require.NoError(t, err)
	plain := f.chatter.requests[len(f.chatter.requests)-1]
	require.Len(t, plain.System, 1)
}

func TestHandleUtteranceAbortsWhenDocumentLookupFails(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	broken, closeBroken := testutil.OpenTestDB(t)
	closeBroken()
	chat := service.NewChatService(
		repo.NewUserRepo(f.db), repo.NewSessionRepo(f.db), repo.NewDocumentRepo(broken),
		f.chatter, f.embedder, topic.NewLDAInferencer(f.generator),
	)

	before := len(f.chatter.requests)
	_, err := chat.HandleUtterance(context.Background(), username, "", "generate quiz about exams")
	require.Error(t, err)
	require.Contains(t, err.Error(), "resolve active document")
	require.Len(t, f.chatter.requests, before)

	// The failed turn left nothing behind.
	history, err := f.chat.History(context.Background(), username)
	require.NoError(t, err)
	for _, entry := range history {
		require.Empty(t, entry.Messages)
	}
}

func TestGroundingWithoutDocumentStaysPlain(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, err := f.chat.HandleUtterance(context.Background(), username, "", "tell me about the document")
	require.NoError(t, err)
	req := f.chatter.requests[len(f.chatter.requests)-1]
	require.Len(t, req.System, 1)
}

func TestDeleteByTopicRemovesExactMatchesOnly(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, err := f.chat.HandleUtterance(context.Background(), username, "", "exam schedule question")
	require.NoError(t, err)
	_, err = f.chat.HandleUtterance(context.Background(), username, "", "another exam schedule question")
	require.NoError(t, err)

	deleted, err := f.chat.DeleteByTopic(context.Background(), username, "Exam schedule")
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, err = f.chat.DeleteByTopic(context.Background(), username, "Exam schedule")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	history, err := f.chat.History(context.Background(), username)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestStartAndEndSession(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	sessionID, err := f.chat.StartSession(context.Background(), username)
	require.NoError(t, err)
	require.Equal(t, "ChatSession_1", sessionID)

	require.NoError(t, f.chat.EndSession(context.Background(), username, sessionID))
	err = f.chat.EndSession(context.Background(), username, "ChatSession_99")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// Explicitly started sessions take turns the same way implicit ones do.
	result, err := f.chat.HandleUtterance(context.Background(), username, sessionID, "exam schedule please")
	require.NoError(t, err)
	require.Equal(t, sessionID, result.SessionID)
}

func TestDocumentIngestChunksAndEmbeds(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	before := f.embedder.calls
	content := strings.Repeat("a", 8192*2+10)
	doc, err := f.documents.Ingest(context.Background(), username, "notes.txt", []byte(content))
	require.NoError(t, err)
	require.Equal(t, content, doc.Content)
	require.Equal(t, 3, f.embedder.calls-before)

	latest, err := f.documents.Latest(context.Background(), username)
	require.NoError(t, err)
	require.Equal(t, doc.ID, latest.ID)

	chunks, err := repo.NewDocumentRepo(f.db).ListChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Seq)
		require.Len(t, chunk.Embedding, 768)
	}
}

func TestHistoryDefaultsTopicForSessionWithoutTurns(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	sessionID, err := f.chat.StartSession(context.Background(), username)
	require.NoError(t, err)

	history, err := f.chat.History(context.Background(), username)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, sessionID, history[0].SessionID)
	require.Equal(t, "General", history[0].Topic)
	require.Empty(t, history[0].Messages)
}

func TestDocumentIngestValidation(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, err := f.documents.Ingest(context.Background(), username, "", []byte("content"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = f.documents.Ingest(context.Background(), username, "empty.txt", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = f.documents.Ingest(context.Background(), "ghost", "notes.txt", []byte("content"))
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, err := f.auth.Register(context.Background(), username, "secret")
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestSignupRequiresAllFields(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()

	_, err := f.auth.Signup(context.Background(), "someone", "pass", "", "Some One")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f, cleanup := setup(t)
	defer cleanup()
	username := registerUser(t, f)

	_, token, err := f.auth.Login(context.Background(), username, "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, _, err = f.auth.Login(context.Background(), username, "wrong")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, _, err = f.auth.Login(context.Background(), "ghost", "secret")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

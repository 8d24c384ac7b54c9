package repo_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/umt-ai/unibot/internal/model"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/pkg/timeutil"
	"github.com/umt-ai/unibot/internal/repo"
	"github.com/umt-ai/unibot/test/testutil"
)

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func createTestUser(t *testing.T, users *repo.UserRepo) *model.User {
	t.Helper()
	user := &model.User{
		ID:           newTestID(),
		Username:     "user-" + newTestID(),
		PasswordHash: "hash",
		Ctime:        timeutil.NowUnix(),
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestSessionRepoAppendTurnKeepsOrder(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	users := repo.NewUserRepo(db)
	sessions := repo.NewSessionRepo(db)
	user := createTestUser(t, users)

	now := timeutil.NowUnixMilli()
	session := &model.Session{UserID: user.ID, SessionID: "ChatSession_1", StartTime: now, Ctime: now}
	require.NoError(t, sessions.Create(context.Background(), session))

	for i := 1; i <= 3; i++ {
		itx := &model.Interaction{
			UserID:       user.ID,
			SessionID:    session.SessionID,
			UserText:     fmt.Sprintf("question %d", i),
			ResponseText: fmt.Sprintf("answer %d", i),
			Ctime:        timeutil.NowUnixMilli(),
		}
		require.NoError(t, sessions.AppendTurn(context.Background(), itx, "Exams", timeutil.NowUnixMilli()))
	}

	interactions, err := sessions.ListInteractions(context.Background(), user.ID, session.SessionID)
	require.NoError(t, err)
	require.Len(t, interactions, 3)
	for i, itx := range interactions {
		require.Equal(t, i+1, itx.Seq)
		require.Equal(t, fmt.Sprintf("question %d", i+1), itx.UserText)
	}

	got, err := sessions.Get(context.Background(), user.ID, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "Exams", got.Topic)
	require.NotZero(t, got.EndTime)
}

func TestSessionRepoAppendTurnUnknownSession(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	users := repo.NewUserRepo(db)
	sessions := repo.NewSessionRepo(db)
	user := createTestUser(t, users)

	itx := &model.Interaction{
		UserID:       user.ID,
		SessionID:    "ChatSession_404",
		UserText:     "hello",
		ResponseText: "hi",
		Ctime:        timeutil.NowUnixMilli(),
	}
	err := sessions.AppendTurn(context.Background(), itx, "Topic", timeutil.NowUnixMilli())
	require.Error(t, err)
}

func TestSessionRepoDuplicateSessionIDConflicts(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	users := repo.NewUserRepo(db)
	sessions := repo.NewSessionRepo(db)
	user := createTestUser(t, users)

	now := timeutil.NowUnixMilli()
	session := &model.Session{UserID: user.ID, SessionID: "ChatSession_1", StartTime: now, Ctime: now}
	require.NoError(t, sessions.Create(context.Background(), session))
	err := sessions.Create(context.Background(), session)
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestSessionRepoDeleteByTopic(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	users := repo.NewUserRepo(db)
	sessions := repo.NewSessionRepo(db)
	user := createTestUser(t, users)

	now := timeutil.NowUnixMilli()
	for i, label := range []string{"Exams", "Exams", "Fees"} {
		sessionID := fmt.Sprintf("ChatSession_%d", i+1)
		require.NoError(t, sessions.Create(context.Background(), &model.Session{
			UserID: user.ID, SessionID: sessionID, StartTime: now, Ctime: now + int64(i),
		}))
		itx := &model.Interaction{
			UserID: user.ID, SessionID: sessionID,
			UserText: "q", ResponseText: "a", Ctime: now,
		}
		require.NoError(t, sessions.AppendTurn(context.Background(), itx, label, now))
	}

	deleted, err := sessions.DeleteByTopic(context.Background(), user.ID, "Exams")
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	remaining, err := sessions.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "Fees", remaining[0].Topic)

	deleted, err = sessions.DeleteByTopic(context.Background(), user.ID, "exams")
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestSessionRepoDeleteByTopicMatchesGeneralDefault(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	users := repo.NewUserRepo(db)
	sessions := repo.NewSessionRepo(db)
	user := createTestUser(t, users)

	now := timeutil.NowUnixMilli()
	require.NoError(t, sessions.Create(context.Background(), &model.Session{
		UserID: user.ID, SessionID: "ChatSession_1", StartTime: now, Ctime: now,
	}))

	deleted, err := sessions.DeleteByTopic(context.Background(), user.ID, model.TopicGeneral)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/umt-ai/unibot/internal/model"
	"github.com/umt-ai/unibot/internal/pkg/dbutil"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
)

// SessionRepo owns session rows keyed by (user_id, session_id) and the
// ordered interaction rows hanging off them.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE user_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepo) Create(ctx context.Context, session *model.Session) error {
	data := map[string]interface{}{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
		"start_time": session.StartTime,
		"ctime":      session.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	const query = `
		SELECT user_id, session_id, COALESCE(topic, ''), start_time, COALESCE(end_time, 0), ctime
		FROM sessions
		WHERE user_id = $1 AND session_id = $2
	`
	var session model.Session
	err := r.db.QueryRowContext(ctx, query, userID, sessionID).Scan(
		&session.UserID,
		&session.SessionID,
		&session.Topic,
		&session.StartTime,
		&session.EndTime,
		&session.Ctime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	const query = `
		SELECT user_id, session_id, COALESCE(topic, ''), start_time, COALESCE(end_time, 0), ctime
		FROM sessions
		WHERE user_id = $1
		ORDER BY ctime ASC, session_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var sessions []*model.Session
	for rows.Next() {
		var session model.Session
		if err := rows.Scan(
			&session.UserID,
			&session.SessionID,
			&session.Topic,
			&session.StartTime,
			&session.EndTime,
			&session.Ctime,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) ListInteractions(ctx context.Context, userID, sessionID string) ([]*model.Interaction, error) {
	const query = `
		SELECT user_id, session_id, seq, user_text, response_text, ctime
		FROM interactions
		WHERE user_id = $1 AND session_id = $2
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var interactions []*model.Interaction
	for rows.Next() {
		var itx model.Interaction
		if err := rows.Scan(
			&itx.UserID,
			&itx.SessionID,
			&itx.Seq,
			&itx.UserText,
			&itx.ResponseText,
			&itx.Ctime,
		); err != nil {
			return nil, err
		}
		interactions = append(interactions, &itx)
	}
	return interactions, rows.Err()
}

// AppendTurn commits one conversation turn atomically: the interaction
// append, the recomputed topic and the refreshed end_time land in a single
// transaction, so a session never holds a partial turn.
func (r *SessionRepo) AppendTurn(ctx context.Context, itx *model.Interaction, topic string, endTime int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
		INSERT INTO interactions (user_id, session_id, seq, user_text, response_text, embedding, ctime)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6
		FROM interactions
		WHERE user_id = $1 AND session_id = $2
	`
	var embedding interface{}
	if len(itx.Embedding) > 0 {
		embedding = pgvector.NewVector(itx.Embedding)
	}
	if _, err := tx.ExecContext(ctx, insertQuery,
		itx.UserID,
		itx.SessionID,
		itx.UserText,
		itx.ResponseText,
		embedding,
		itx.Ctime,
	); err != nil {
		return err
	}

	const updateQuery = `
		UPDATE sessions SET topic = $3, end_time = $4
		WHERE user_id = $1 AND session_id = $2
	`
	result, err := tx.ExecContext(ctx, updateQuery, itx.UserID, itx.SessionID, topic, endTime)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return tx.Commit()
}

func (r *SessionRepo) SetEndTime(ctx context.Context, userID, sessionID string, endTime int64) error {
	const query = `UPDATE sessions SET end_time = $3 WHERE user_id = $1 AND session_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, sessionID, endTime)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteByTopic removes every session of the user whose topic matches
// exactly. Sessions that never got a topic inferred match the "General"
// label, the same default they surface with in history listings.
func (r *SessionRepo) DeleteByTopic(ctx context.Context, userID, topic string) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_id = $1 AND COALESCE(topic, 'General') = $2`
	result, err := r.db.ExecContext(ctx, query, userID, topic)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

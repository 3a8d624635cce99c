package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// AppendTurn records one question/answer exchange for a session.
func (s *Store) AppendTurn(ctx context.Context, sessionID, question, answer, model string) (ConversationTurn, error) {
	created := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO application_logs (session_id, user_query, gpt_response, model, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, question, answer, model, formatTime(created),
	)
	if err != nil {
		return ConversationTurn{}, fmt.Errorf("appending turn for session %s: %w", sessionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ConversationTurn{}, fmt.Errorf("reading turn id: %w", err)
	}
	return ConversationTurn{
		ID:        id,
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Model:     model,
		CreatedAt: created,
	}, nil
}

// GetHistory returns the turns of a session in creation order. Turns with
// equal timestamps keep insertion order.
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_query, gpt_response, model, created_at
		FROM application_logs
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		var session, question, answer, model sql.NullString
		var created timestamp
		if err := rows.Scan(&t.ID, &session, &question, &answer, &model, &created); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.SessionID = session.String
		t.Question = question.String
		t.Answer = answer.String
		t.Model = model.String
		t.CreatedAt = created.Time
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// CountTurns returns the number of turns recorded for a session.
func (s *Store) CountTurns(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM application_logs WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertDocument stores a new document and returns its id. Ids come from
// AUTOINCREMENT and are never reused after deletion.
func (s *Store) InsertDocument(ctx context.Context, filename, content string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO document_store (filename, content, upload_timestamp) VALUES (?, ?, ?)`,
		filename, content, formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document %q: %w", filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}
	return id, nil
}

// DeleteDocument removes a document and its session links. It reports
// whether a document row was removed.
func (s *Store) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_sessions WHERE document_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting session links for document %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM document_store WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete of document %d: %w", id, err)
	}
	return n > 0, nil
}

// GetDocument returns the full document or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id int64) (Document, error) {
	var d Document
	var filename, content sql.NullString
	var uploaded timestamp
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, content, upload_timestamp FROM document_store WHERE id = ?`, id,
	).Scan(&d.ID, &filename, &content, &uploaded)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("reading document %d: %w", id, err)
	}
	d.Filename = filename.String
	d.Content = content.String
	d.UploadedAt = uploaded.Time
	return d, nil
}

// GetDocumentContent returns only the document text or ErrNotFound.
func (s *Store) GetDocumentContent(ctx context.Context, id int64) (string, error) {
	var content sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content FROM document_store WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading content of document %d: %w", id, err)
	}
	return content.String, nil
}

// DocumentExists reports whether a document row is present.
func (s *Store) DocumentExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_store WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("checking document %d: %w", id, err)
	}
	return n > 0, nil
}

// AttachDocument links a document to a session for scoped listings.
// Attaching the same pair twice is a no-op.
func (s *Store) AttachDocument(ctx context.Context, documentID int64, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO document_sessions (document_id, session_id) VALUES (?, ?)`,
		documentID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("attaching document %d to session %s: %w", documentID, sessionID, err)
	}
	return nil
}

// ListDocuments returns document summaries, newest upload first. A
// non-empty sessionID limits the list to documents attached to that session.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]DocumentSummary, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, filename, upload_timestamp FROM document_store
			ORDER BY upload_timestamp DESC, id DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT d.id, d.filename, d.upload_timestamp FROM document_store d
			JOIN document_sessions ds ON ds.document_id = d.id
			WHERE ds.session_id = ?
			ORDER BY d.upload_timestamp DESC, d.id DESC`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentSummary{}
	for rows.Next() {
		var d DocumentSummary
		var filename sql.NullString
		var uploaded timestamp
		if err := rows.Scan(&d.ID, &filename, &uploaded); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		d.Filename = filename.String
		d.UploadedAt = uploaded.Time
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

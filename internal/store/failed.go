package store

import (
	"fmt"

	"github.com/feedchat/feedchat/internal/chat"
)

// InsertFailed queues an outbound message for a later retry and returns its row id.
func (db *DB) InsertFailed(f *chat.FailedSend) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("insert failed send: %w", err)
	}
	res, err := db.Exec(`
		INSERT INTO failed_sends (sender, recipient, text, image_path)
		VALUES (?, ?, ?, ?)`,
		f.Sender, f.Recipient, nullString(f.Text), nullString(f.ImagePath))
	if err != nil {
		return 0, fmt.Errorf("insert failed send: %w", err)
	}
	return res.LastInsertId()
}

// ListFailed returns every queued record, oldest first.
func (db *DB) ListFailed() ([]chat.FailedSend, error) {
	rows, err := db.Query(`
		SELECT id, sender, recipient, COALESCE(text, ''), COALESCE(image_path, '')
		FROM failed_sends
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chat.FailedSend
	for rows.Next() {
		var f chat.FailedSend
		if err := rows.Scan(&f.ID, &f.Sender, &f.Recipient, &f.Text, &f.ImagePath); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFailed removes a queued record. Deleting a missing id is not an error.
func (db *DB) DeleteFailed(id int64) error {
	_, err := db.Exec(`DELETE FROM failed_sends WHERE id = ?`, id)
	return err
}

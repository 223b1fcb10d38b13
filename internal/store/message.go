package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/feedchat/feedchat/internal/chat"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// InsertMessage stores a feed message. Re-inserting a known id is a no-op so a
// batch replayed after a crash does not fail.
func (db *DB) InsertMessage(m *chat.Message) error {
	if m.ID <= 0 {
		return fmt.Errorf("insert message: feed id required, got %d", m.ID)
	}
	row := messageRow{ID: m.ID, Sender: m.Sender, Recipient: m.Recipient, Time: m.Time}
	switch p := m.Payload.(type) {
	case chat.Text:
		row.Text = nullString(p.Body)
	case *chat.Image:
		row.ImageLink = nullString(p.Link)
		row.CacheKey = nullString(p.CacheKey)
	default:
		return fmt.Errorf("insert message %d: %w", m.ID, chat.ErrAmbiguousPayload)
	}
	if row.Text.Valid == row.ImageLink.Valid {
		return fmt.Errorf("insert message %d: %w", m.ID, chat.ErrAmbiguousPayload)
	}

	_, err := db.Exec(`
		INSERT INTO messages (id, cache_key, sender, recipient, text, image_link, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		row.ID, row.CacheKey, row.Sender, row.Recipient, row.Text, row.ImageLink, row.Time)
	if err != nil {
		return fmt.Errorf("insert message %d: %w", m.ID, err)
	}
	return nil
}

// ListMessages returns every stored message in ascending feed id order.
func (db *DB) ListMessages() ([]chat.Message, error) {
	rows, err := db.Query(`
		SELECT id, cache_key, sender, recipient, text, image_link, time
		FROM messages
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		var r messageRow
		if err := rows.Scan(&r.ID, &r.CacheKey, &r.Sender, &r.Recipient, &r.Text, &r.ImageLink, &r.Time); err != nil {
			return nil, err
		}
		m := chat.Message{ID: r.ID, Sender: r.Sender, Recipient: r.Recipient, Time: r.Time}
		if r.ImageLink.Valid {
			m.Payload = &chat.Image{Link: r.ImageLink.String, CacheKey: r.CacheKey.String}
		} else {
			m.Payload = chat.Text{Body: r.Text.String}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CacheKeyByID returns the image cache key recorded for a message. An image
// message that was never cached yields an empty key and no error.
func (db *DB) CacheKeyByID(id int64) (string, error) {
	var key sql.NullString
	err := db.QueryRow(`SELECT cache_key FROM messages WHERE id = ?`, id).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return key.String, nil
}

// SetCacheKey records the image cache key of a message.
func (db *DB) SetCacheKey(id int64, key string) error {
	res, err := db.Exec(`UPDATE messages SET cache_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return nil
}

// MaxMessageID returns the highest stored feed id, or 0 for an empty store.
func (db *DB) MaxMessageID() (int64, error) {
	var id sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(id) FROM messages`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

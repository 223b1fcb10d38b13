package store

import "database/sql"

// messageRow mirrors one row of the messages table; exactly one of Text and
// ImageLink is valid.
type messageRow struct {
	ID        int64
	CacheKey  sql.NullString
	Sender    string
	Recipient string
	Text      sql.NullString
	ImageLink sql.NullString
	Time      string
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/feedchat/feedchat/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, _, err := OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already migrated, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + image index)", result.Version)
	}
}

// TestSchemaRejectsAmbiguousRows verifies the CHECK constraints guard the
// exactly-one-of invariant even for writes that bypass the Go layer.
func TestSchemaRejectsAmbiguousRows(t *testing.T) {
	db := testDB(t)

	bad := []struct {
		desc  string
		query string
		args  []any
	}{
		{"message with both", "INSERT INTO messages (id, sender, recipient, text, image_link, time) VALUES (?, ?, ?, ?, ?, ?)", []any{1, "a", "b", "t", "l", "1"}},
		{"message with neither", "INSERT INTO messages (id, sender, recipient, time) VALUES (?, ?, ?, ?)", []any{2, "a", "b", "1"}},
		{"failed with both", "INSERT INTO failed_sends (sender, recipient, text, image_path) VALUES (?, ?, ?, ?)", []any{"a", "b", "t", "/p"}},
		{"failed with neither", "INSERT INTO failed_sends (sender, recipient) VALUES (?, ?)", []any{"a", "b"}},
	}
	for _, op := range bad {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.Exec(op.query, op.args...); err == nil {
				t.Errorf("%s: expected constraint violation", op.desc)
			}
		})
	}
}

func TestInsertAndListMessages(t *testing.T) {
	db := testDB(t)

	msgs := []*chat.Message{
		{ID: 3, Sender: "a", Recipient: "1@ch", Payload: &chat.Image{Link: "p.png", CacheKey: "k3"}, Time: "3"},
		{ID: 1, Sender: "a", Recipient: "1@ch", Payload: chat.Text{Body: "one"}, Time: "1"},
	}
	for _, m := range msgs {
		if err := db.InsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}
	// Idempotent on id.
	if err := db.InsertMessage(msgs[1]); err != nil {
		t.Fatalf("re-insert: %v", err)
	}

	got, err := db.ListMessages()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("order = [%d %d], want [1 3]", got[0].ID, got[1].ID)
	}
	if text, ok := got[0].Payload.(chat.Text); !ok || text.Body != "one" {
		t.Errorf("got[0].Payload = %#v", got[0].Payload)
	}
	img, ok := got[1].ImagePayload()
	if !ok || img.Link != "p.png" || img.CacheKey != "k3" {
		t.Errorf("got[1].Payload = %#v", got[1].Payload)
	}

	max, err := db.MaxMessageID()
	if err != nil {
		t.Fatal(err)
	}
	if max != 3 {
		t.Errorf("MaxMessageID = %d, want 3", max)
	}
}

func TestInsertMessageRequiresFeedID(t *testing.T) {
	db := testDB(t)
	err := db.InsertMessage(&chat.Message{Sender: "a", Recipient: "b", Payload: chat.Text{Body: "x"}})
	if err == nil {
		t.Error("expected error for draft without id")
	}
}

func TestCacheKey(t *testing.T) {
	db := testDB(t)

	if err := db.InsertMessage(&chat.Message{ID: 9, Sender: "a", Recipient: "b", Payload: &chat.Image{Link: "x.png"}, Time: "9"}); err != nil {
		t.Fatal(err)
	}
	key, err := db.CacheKeyByID(9)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		t.Errorf("key = %q, want empty before caching", key)
	}

	if err := db.SetCacheKey(9, "abc"); err != nil {
		t.Fatal(err)
	}
	key, err = db.CacheKeyByID(9)
	if err != nil {
		t.Fatal(err)
	}
	if key != "abc" {
		t.Errorf("key = %q, want abc", key)
	}

	if _, err := db.CacheKeyByID(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
	if err := db.SetCacheKey(404, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCacheKey missing id err = %v, want ErrNotFound", err)
	}
}

func TestFailedQueue(t *testing.T) {
	db := testDB(t)

	id1, err := db.InsertFailed(&chat.FailedSend{Sender: "me", Recipient: "1@ch", Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertFailed(&chat.FailedSend{Sender: "me", Recipient: "1@ch", ImagePath: "/pics/a.png"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertFailed(&chat.FailedSend{Sender: "me", Recipient: "1@ch"}); err == nil {
		t.Error("expected validation error for empty record")
	}

	recs, err := db.ListFailed()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Text != "hello" || recs[0].IsImage() {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[1].ImagePath != "/pics/a.png" || !recs[1].IsImage() {
		t.Errorf("recs[1] = %+v", recs[1])
	}

	if err := db.DeleteFailed(id1); err != nil {
		t.Fatal(err)
	}
	recs, _ = db.ListFailed()
	if len(recs) != 1 {
		t.Errorf("got %d records after delete, want 1", len(recs))
	}
}

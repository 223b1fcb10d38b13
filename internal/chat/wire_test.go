package chat

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeMessages(t *testing.T) {
	body := []byte(`[
		{"id": 1, "from": "alice", "to": "1@ch", "data": {"Text": {"Text": "hello"}}, "time": "1000"},
		{"id": 2, "from": "bob", "to": "1@ch", "data": {"image": {"link": "abc.png"}}, "time": "2000"}
	]`)

	page, rejected, err := DecodeMessages(body)
	if err != nil {
		t.Fatal(err)
	}
	msgs := page.Messages
	if page.LastID != 2 {
		t.Errorf("LastID = %d, want 2", page.LastID)
	}
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v, want none", rejected)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	text, ok := msgs[0].Payload.(Text)
	if !ok || text.Body != "hello" {
		t.Errorf("msgs[0].Payload = %#v, want Text{hello}", msgs[0].Payload)
	}
	img, ok := msgs[1].ImagePayload()
	if !ok || img.Link != "abc.png" {
		t.Errorf("msgs[1].Payload = %#v, want Image{abc.png}", msgs[1].Payload)
	}
	if msgs[1].ID != 2 || msgs[1].Sender != "bob" || msgs[1].Time != "2000" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

func TestDecodeMessagesRejectsAmbiguousPayload(t *testing.T) {
	body := []byte(`[
		{"id": 1, "from": "a", "to": "b", "data": {}, "time": "1"},
		{"id": 2, "from": "a", "to": "b", "data": {"Text": {"text": "x"}, "Image": {"link": "y"}}, "time": "2"},
		{"id": 3, "from": "a", "to": "b", "data": {"Text": {"text": "ok"}}, "time": "3"},
		{"id": 4, "from": "a", "to": "b", "data": {}, "time": "4"}
	]`)

	page, rejected, err := DecodeMessages(body)
	if err != nil {
		t.Fatal(err)
	}
	if msgs := page.Messages; len(msgs) != 1 || msgs[0].ID != 3 {
		t.Fatalf("got %+v, want only id 3", msgs)
	}
	if page.LastID != 4 {
		t.Errorf("LastID = %d, want 4 (rejected entries count)", page.LastID)
	}
	if len(rejected) != 3 {
		t.Fatalf("got %d rejected, want 3", len(rejected))
	}
	for _, r := range rejected {
		if !errors.Is(r, ErrAmbiguousPayload) {
			t.Errorf("rejected error %v does not wrap ErrAmbiguousPayload", r)
		}
	}
}

func TestDecodeMessagesMalformed(t *testing.T) {
	if _, _, err := DecodeMessages([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestEncodeTextOmitsID(t *testing.T) {
	m, err := NewTextDraft("hi", "me", "1@ch", time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeText(m)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := `{"from":"me","to":"1@ch","data":{"Text":{"text":"hi"}},"time":"1700000000000"}`
	if got != want {
		t.Errorf("EncodeText = %s, want %s", got, want)
	}
	if strings.Contains(got, `"id"`) {
		t.Error("draft must not carry an id")
	}
}

func TestNewTextDraftEmpty(t *testing.T) {
	if _, err := NewTextDraft("", "me", "1@ch", time.Now()); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestFailedSendValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     FailedSend
		wantErr bool
	}{
		{"text only", FailedSend{Text: "hi"}, false},
		{"image only", FailedSend{ImagePath: "/tmp/a.png"}, false},
		{"neither", FailedSend{}, true},
		{"both", FailedSend{Text: "hi", ImagePath: "/tmp/a.png"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

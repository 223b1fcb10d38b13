package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type wireMessage struct {
	ID   int64    `json:"id,omitempty"`
	From string   `json:"from"`
	To   string   `json:"to"`
	Data wireData `json:"data"`
	Time string   `json:"time"`
}

type wireData struct {
	Text  *wireText  `json:"Text,omitempty"`
	Image *wireImage `json:"Image,omitempty"`
}

type wireText struct {
	Text string `json:"text"`
}

type wireImage struct {
	Link string `json:"link"`
}

// Page is one decoded feed response.
type Page struct {
	Messages []Message
	// LastID is the highest id of any entry in the response, rejected ones
	// included. Zero for an empty page.
	LastID int64
}

// DecodeMessages parses a feed page. Entries that fail payload validation are
// returned in rejected with their index; the remaining messages keep feed order.
func DecodeMessages(body []byte) (page Page, rejected []error, err error) {
	var raw []wireMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Page{}, nil, fmt.Errorf("decode messages: %w", err)
	}
	page.Messages = make([]Message, 0, len(raw))
	for i, w := range raw {
		page.LastID = max(page.LastID, w.ID)
		m, err := w.message()
		if err != nil {
			rejected = append(rejected, fmt.Errorf("entry %d (id %d): %w", i, w.ID, err))
			continue
		}
		page.Messages = append(page.Messages, m)
	}
	return page, rejected, nil
}

func (w wireMessage) message() (Message, error) {
	hasText := w.Data.Text != nil && w.Data.Text.Text != ""
	hasImage := w.Data.Image != nil && w.Data.Image.Link != ""
	if hasText == hasImage {
		return Message{}, ErrAmbiguousPayload
	}
	m := Message{ID: w.ID, Sender: w.From, Recipient: w.To, Time: w.Time}
	if hasText {
		m.Payload = Text{Body: w.Data.Text.Text}
	} else {
		m.Payload = &Image{Link: w.Data.Image.Link}
	}
	return m, nil
}

// NewTextDraft builds an unacknowledged text message stamped with now.
func NewTextDraft(body, sender, recipient string, now time.Time) (Message, error) {
	if body == "" {
		return Message{}, ErrEmptyText
	}
	return Message{
		Sender:    sender,
		Recipient: recipient,
		Payload:   Text{Body: body},
		Time:      strconv.FormatInt(now.UnixMilli(), 10),
	}, nil
}

// EncodeText serializes a text draft for the feed's submit endpoint.
func EncodeText(m Message) ([]byte, error) {
	t, ok := m.Payload.(Text)
	if !ok {
		return nil, fmt.Errorf("encode text: payload is %T", m.Payload)
	}
	return json.Marshal(wireMessage{
		From: m.Sender,
		To:   m.Recipient,
		Data: wireData{Text: &wireText{Text: t.Body}},
		Time: m.Time,
	})
}

// EncodeImageHeader is the JSON part sent alongside an image upload.
func EncodeImageHeader(sender string) ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
	}{From: sender})
}

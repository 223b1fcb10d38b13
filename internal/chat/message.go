package chat

import (
	"errors"
	"image"
)

var (
	// ErrAmbiguousPayload is returned for a message carrying both or neither of text and image.
	ErrAmbiguousPayload = errors.New("message must carry exactly one of text or image")
	// ErrEmptyText is returned when a text message has an empty body.
	ErrEmptyText = errors.New("message can't be empty")
)

// Message is one entry of the feed. ID is assigned by the feed; zero marks a
// local draft that the feed has not acknowledged yet.
type Message struct {
	ID        int64
	Sender    string
	Recipient string
	Payload   Payload
	Time      string // epoch millis
}

// Payload is either Text or *Image.
type Payload interface {
	payload()
}

// Text is a plain text payload.
type Text struct {
	Body string
}

func (Text) payload() {}

// Image references a picture stored on the feed server. Thumb holds a reduced
// derivative only; full-resolution bytes live in the image cache under CacheKey.
type Image struct {
	Link     string
	CacheKey string
	Thumb    image.Image
}

func (*Image) payload() {}

// ImagePayload returns the message's image payload, if it has one.
func (m *Message) ImagePayload() (*Image, bool) {
	img, ok := m.Payload.(*Image)
	return img, ok
}

// Preview returns a short single-line description of the payload.
func (m *Message) Preview() string {
	switch p := m.Payload.(type) {
	case Text:
		return p.Body
	case *Image:
		return "[image " + p.Link + "]"
	default:
		return ""
	}
}

// FailedSend is an outbound message that never reached the feed.
// Exactly one of Text and ImagePath is set.
type FailedSend struct {
	ID        int64
	Sender    string
	Recipient string
	Text      string
	ImagePath string
}

// IsImage reports whether the record replays through the image path.
func (f *FailedSend) IsImage() bool {
	return f.ImagePath != ""
}

// Validate checks the exactly-one-of invariant.
func (f *FailedSend) Validate() error {
	if (f.Text == "") == (f.ImagePath == "") {
		return ErrAmbiguousPayload
	}
	return nil
}

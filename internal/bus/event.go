package bus

import "time"

// Event is a notification from the engine to whoever presents it.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter by prefix ("feed.", "send.", "status.").
const (
	KindMessagesInserted  = "feed.messages_inserted"
	KindImageReady        = "feed.image_ready"
	KindMessagesLoaded    = "feed.messages_loaded"
	KindServerUnreachable = "feed.unreachable"
	KindSendFailed        = "send.failed"
	KindValidationError   = "send.validation"
	KindStatusChanged     = "status.changed"
)

// MessagesInserted reports that log entries [From, To) were appended.
type MessagesInserted struct {
	From int
	To   int
}

// ImageReady reports that the thumbnail at log Index is available.
type ImageReady struct {
	Index int
}

// SendFailed reports a send the feed answered with a rejection.
type SendFailed struct {
	Kind   string
	Code   int
	Detail string
}

// ValidationError reports a local problem with user input; nothing was sent.
type ValidationError struct {
	Detail string
}

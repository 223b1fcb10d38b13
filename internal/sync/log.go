package sync

import (
	"image"
	gosync "sync"

	"github.com/feedchat/feedchat/internal/chat"
)

// Log is the ordered in-memory message list shown to the user. It only grows.
// Writers are serialized by the engine's gate; the mutex only protects readers
// on other goroutines. Image payloads are replaced, never mutated, so a
// snapshot stays valid after later writes.
type Log struct {
	mu   gosync.RWMutex
	msgs []chat.Message
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// TailID returns the feed id of the last message, or 0 when empty.
func (l *Log) TailID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.msgs) == 0 {
		return 0
	}
	return l.msgs[len(l.msgs)-1].ID
}

// At returns the message at index i.
func (l *Log) At(i int) (chat.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.msgs) {
		return chat.Message{}, false
	}
	return l.msgs[i], true
}

// Snapshot returns a copy of the log; indices in it match the live log.
func (l *Log) Snapshot() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]chat.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func (l *Log) append(m chat.Message) {
	l.mu.Lock()
	l.msgs = append(l.msgs, m)
	l.mu.Unlock()
}

func (l *Log) reset(msgs []chat.Message) {
	l.mu.Lock()
	l.msgs = msgs
	l.mu.Unlock()
}

// setThumb installs a fresh image payload at index i carrying key and thumb.
func (l *Log) setThumb(i int, key string, thumb image.Image) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.msgs) {
		return false
	}
	old, ok := l.msgs[i].Payload.(*chat.Image)
	if !ok {
		return false
	}
	l.msgs[i].Payload = &chat.Image{Link: old.Link, CacheKey: key, Thumb: thumb}
	return true
}

package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/status"
)

const flashTTL = 5 * time.Second

// Source is the read side of the message log.
type Source interface {
	Messages() []chat.Message
}

// ViewModel folds engine events into what the screen shows.
type ViewModel struct {
	mu sync.RWMutex

	source   Source
	Messages []chat.Message
	Status   status.State
	Flash    Flash
}

// NewViewModel creates a view model reading the log from src.
func NewViewModel(src Source) *ViewModel {
	return &ViewModel{source: src, Status: status.Booting}
}

// Apply updates the model for evt and reports whether the screen needs a redraw.
func (vm *ViewModel) Apply(evt bus.Event) bool {
	switch evt.Kind {
	case bus.KindMessagesLoaded, bus.KindMessagesInserted, bus.KindImageReady:
		msgs := vm.source.Messages()
		vm.mu.Lock()
		vm.Messages = msgs
		vm.mu.Unlock()
	case bus.KindServerUnreachable:
		vm.Flash.Set("Server unreachable", flashTTL)
	case bus.KindSendFailed:
		p, _ := evt.Payload.(bus.SendFailed)
		vm.Flash.Set(sendFailedText(p), flashTTL)
	case bus.KindValidationError:
		p, _ := evt.Payload.(bus.ValidationError)
		vm.Flash.Set(p.Detail, flashTTL)
	case bus.KindStatusChanged:
		p, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return false
		}
		vm.mu.Lock()
		vm.Status = p.To
		vm.mu.Unlock()
	default:
		return false
	}
	return true
}

func sendFailedText(p bus.SendFailed) string {
	switch p.Kind {
	case "payload_too_large":
		return "Message too large"
	case "server_error":
		return fmt.Sprintf("Server error (%d)", p.Code)
	case "not_found":
		return "Channel not found"
	default:
		return fmt.Sprintf("Send failed (%d)", p.Code)
	}
}

// GetMessages returns a snapshot of the current messages.
func (vm *ViewModel) GetMessages() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Messages
}

// GetStatus returns the last reported feed state.
func (vm *ViewModel) GetStatus() status.State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Status
}

// Package outbox submits user messages to the feed and retries the ones that
// never reached it.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/feed"
	"github.com/feedchat/feedchat/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptySource is returned by SendImage for an empty source path.
	ErrEmptySource = errors.New("no image selected")
	// ErrQueued is returned when the feed could not be reached and the
	// message was queued for the next sweep.
	ErrQueued = errors.New("feed unreachable, message queued for retry")
)

// Poller refreshes the log after a send.
type Poller interface {
	Poll(ctx context.Context) error
}

// FailedQueue persists sends that got no response.
type FailedQueue interface {
	InsertFailed(f *chat.FailedSend) (int64, error)
	ListFailed() ([]chat.FailedSend, error)
	DeleteFailed(id int64) error
}

// Options configures the dispatcher.
type Options struct {
	// TempDir receives the re-encoded copy of an image while it uploads.
	TempDir string
	// RetrySchedule is a cron expression or descriptor for the sweep.
	RetrySchedule string
}

// Dispatcher sends text and images to the feed.
type Dispatcher struct {
	queue  FailedQueue
	feed   feed.API
	poller Poller
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewDispatcher creates a dispatcher. poller may be nil.
func NewDispatcher(q FailedQueue, api feed.API, poller Poller, b *bus.Bus, logger *zap.Logger, opts Options) *Dispatcher {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.RetrySchedule == "" {
		opts.RetrySchedule = "@every 30s"
	}
	return &Dispatcher{
		queue:  q,
		feed:   api,
		poller: poller,
		bus:    b,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// Start registers the failed-send sweep on s.
func (d *Dispatcher) Start(s *schedule.Scheduler) error {
	return s.Cron("sweep", d.opts.RetrySchedule, func(ctx context.Context) {
		if _, err := d.FlushFailed(ctx); err != nil {
			d.logger.Warn("failed-send sweep failed", zap.Error(err))
		}
	})
}

// SendText submits a text message. Validation problems and feed rejections
// are announced on the bus and also returned.
func (d *Dispatcher) SendText(ctx context.Context, body, sender, recipient string) error {
	draft, err := chat.NewTextDraft(body, sender, recipient, d.now())
	if err != nil {
		d.invalid(err.Error())
		return err
	}
	data, err := chat.EncodeText(draft)
	if err != nil {
		d.invalid(err.Error())
		return err
	}

	st, err := d.feed.SubmitText(ctx, data)
	if st == feed.StatusTransport {
		return d.enqueue(&chat.FailedSend{Sender: sender, Recipient: recipient, Text: body}, err)
	}
	return d.settle(ctx, "text", st, err)
}

// SendImage uploads the picture at source. The image is decoded and
// re-encoded as PNG into a temporary file that is removed afterwards.
func (d *Dispatcher) SendImage(ctx context.Context, source, sender, recipient string) error {
	if source == "" {
		d.invalid(ErrEmptySource.Error())
		return ErrEmptySource
	}
	img, err := loadImage(source)
	if err != nil {
		d.invalid(fmt.Sprintf("can't load image: %v", err))
		return err
	}
	tmp, err := d.writeTemp(img)
	if err != nil {
		d.invalid(fmt.Sprintf("can't prepare image: %v", err))
		return err
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove upload copy", zap.String("path", tmp), zap.Error(err))
		}
	}()

	st, err := d.feed.SubmitImage(ctx, sender, tmp)
	if st == feed.StatusTransport {
		return d.enqueue(&chat.FailedSend{Sender: sender, Recipient: recipient, ImagePath: source}, err)
	}
	return d.settle(ctx, "image", st, err)
}

// FlushFailed replays every queued send once and removes its record whatever
// the outcome. A replay that fails to reach the feed again queues a new record.
func (d *Dispatcher) FlushFailed(ctx context.Context) (int, error) {
	records, err := d.queue.ListFailed()
	if err != nil {
		return 0, fmt.Errorf("list failed sends: %w", err)
	}
	for _, r := range records {
		var err error
		if r.IsImage() {
			err = d.SendImage(ctx, r.ImagePath, r.Sender, r.Recipient)
		} else {
			err = d.SendText(ctx, r.Text, r.Sender, r.Recipient)
		}
		if err != nil {
			d.logger.Debug("replay did not succeed", zap.Int64("record", r.ID), zap.Error(err))
		}
		if err := d.queue.DeleteFailed(r.ID); err != nil {
			d.logger.Warn("failed to delete replayed record", zap.Int64("record", r.ID), zap.Error(err))
		}
	}
	if len(records) > 0 {
		d.logger.Info("failed sends replayed", zap.Int("count", len(records)))
	}
	return len(records), nil
}

// settle handles any outcome that came with a response.
func (d *Dispatcher) settle(ctx context.Context, what string, st feed.Status, sendErr error) error {
	switch st {
	case feed.StatusOK:
		d.logger.Debug("message sent", zap.String("type", what))
	case feed.StatusServerError, feed.StatusNotFound, feed.StatusPayloadTooLarge:
		d.reject(st.String(), sendErr)
	default:
		d.reject(feed.StatusUnknown.String(), sendErr)
	}
	d.poll(ctx)
	return sendErr
}

func (d *Dispatcher) reject(kind string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	d.logger.Info("feed rejected message", zap.String("kind", kind), zap.Int("code", feed.Code(err)))
	d.bus.Emit(bus.KindSendFailed, bus.SendFailed{Kind: kind, Code: feed.Code(err), Detail: detail})
}

func (d *Dispatcher) enqueue(r *chat.FailedSend, sendErr error) error {
	if _, err := d.queue.InsertFailed(r); err != nil {
		d.logger.Error("failed to queue message for retry", zap.Error(err))
		return fmt.Errorf("queue failed send: %w", err)
	}
	d.logger.Info("feed unreachable, message queued", zap.Bool("image", r.IsImage()), zap.Error(sendErr))
	return ErrQueued
}

func (d *Dispatcher) poll(ctx context.Context) {
	if d.poller == nil {
		return
	}
	if err := d.poller.Poll(ctx); err != nil {
		d.logger.Debug("poll after send failed", zap.Error(err))
	}
}

func (d *Dispatcher) invalid(detail string) {
	d.bus.Emit(bus.KindValidationError, bus.ValidationError{Detail: detail})
}

func (d *Dispatcher) writeTemp(img image.Image) (string, error) {
	if err := os.MkdirAll(d.opts.TempDir, 0700); err != nil {
		return "", err
	}
	path := filepath.Join(d.opts.TempDir, uuid.NewString()+".png")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/feed"
	"github.com/feedchat/feedchat/internal/imagecache"
	"github.com/feedchat/feedchat/internal/schedule"
	"github.com/feedchat/feedchat/internal/status"
	"go.uber.org/zap"
)

// MessageStore is the durable side of the log.
type MessageStore interface {
	InsertMessage(m *chat.Message) error
	ListMessages() ([]chat.Message, error)
	CacheKeyByID(id int64) (string, error)
	SetCacheKey(id int64, key string) error
}

// Options tunes the engine.
type Options struct {
	PageLimit      int
	ThumbnailSize  int
	PollInterval   time.Duration
	RefillInterval time.Duration
}

// Engine keeps the in-memory log in step with the remote feed. Poll and
// RefillImages share one gate and hold it for their whole run, network I/O
// included.
type Engine struct {
	store   MessageStore
	feed    feed.API
	cache   *imagecache.Cache
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	opts    Options

	gate *Gate
	log  Log
	// seen is the highest feed id consumed, rejected entries included.
	// Guarded by gate.
	seen int64
}

// NewEngine creates a new sync engine. machine may be nil.
func NewEngine(db MessageStore, api feed.API, cache *imagecache.Cache, b *bus.Bus, machine *status.Machine, logger *zap.Logger, opts Options) *Engine {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 100
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 256
	}
	return &Engine{
		store:   db,
		feed:    api,
		cache:   cache,
		bus:     b,
		machine: machine,
		logger:  logger,
		opts:    opts,
		gate:    NewGate(),
	}
}

// Start registers the poll and image refill loops on s.
func (e *Engine) Start(s *schedule.Scheduler) {
	s.Every("poll", e.opts.PollInterval, func(ctx context.Context) {
		if err := e.Poll(ctx); err != nil {
			e.logger.Warn("poll failed", zap.Error(err))
		}
	})
	s.Every("refill", e.opts.RefillInterval, func(ctx context.Context) {
		if err := e.RefillImages(ctx); err != nil {
			e.logger.Warn("image refill failed", zap.Error(err))
		}
	})
}

// Messages returns a snapshot of the log.
func (e *Engine) Messages() []chat.Message {
	return e.log.Snapshot()
}

// Len returns the current log length.
func (e *Engine) Len() int {
	return e.log.Len()
}

// Load fills an empty log from the message store and announces it.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.gate.Acquire(ctx); err != nil {
		return err
	}
	defer e.gate.Release()

	if e.log.Len() > 0 {
		return nil
	}
	msgs, err := e.store.ListMessages()
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	e.log.reset(msgs)
	e.logger.Info("messages loaded", zap.Int("count", len(msgs)))
	e.bus.Emit(bus.KindMessagesLoaded, nil)
	return nil
}

// Poll fetches everything after the log's tail and appends it. Entries the feed
// client rejects still move the cursor. On a transport or server failure it
// announces the feed as unreachable and changes nothing.
func (e *Engine) Poll(ctx context.Context) error {
	if err := e.gate.Acquire(ctx); err != nil {
		return err
	}
	defer e.gate.Release()

	cursor := max(e.log.TailID(), e.seen) + 1
	page, st, err := e.feed.FetchMessages(ctx, cursor, e.opts.PageLimit)
	if err != nil {
		reachable := st != feed.StatusTransport && st != feed.StatusServerError
		e.observe(reachable)
		if !reachable {
			e.bus.Emit(bus.KindServerUnreachable, nil)
		}
		return fmt.Errorf("fetch after %d: %w", cursor, err)
	}
	e.observe(true)

	from := e.log.Len()
	var persistErr error
	for i := range page.Messages {
		m := page.Messages[i]
		if m.ID <= e.log.TailID() {
			e.logger.Debug("dropping message behind cursor", zap.Int64("id", m.ID), zap.Int64("tail", e.log.TailID()))
			continue
		}
		img, isImage := m.ImagePayload()
		if isImage {
			img = &chat.Image{Link: img.Link, CacheKey: imagecache.NewKey()}
			m.Payload = img
		}
		if err := e.store.InsertMessage(&m); err != nil {
			// Stop here so the store and the log keep the same tail; the
			// next poll resumes from it.
			persistErr = fmt.Errorf("persist message %d: %w", m.ID, err)
			break
		}
		if isImage {
			e.writeThrough(ctx, m.ID, img)
		}
		e.log.append(m)
	}
	if persistErr == nil {
		e.seen = max(e.seen, page.LastID)
	}

	if to := e.log.Len(); to > from {
		e.logger.Debug("messages inserted", zap.Int("from", from), zap.Int("to", to))
		e.bus.Emit(bus.KindMessagesInserted, bus.MessagesInserted{From: from, To: to})
	}
	return persistErr
}

// writeThrough caches a freshly received image and derives its thumbnail.
// Failures are left for the refill loop.
func (e *Engine) writeThrough(ctx context.Context, id int64, img *chat.Image) {
	full, err := e.cache.Fill(ctx, img.CacheKey, img.Link, e.download)
	if err != nil {
		e.logger.Debug("write-through cache failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	img.Thumb = imagecache.Thumbnail(full, e.opts.ThumbnailSize)
}

// RefillImages backfills thumbnails for image messages that have none.
// A failing message is skipped until the next pass.
func (e *Engine) RefillImages(ctx context.Context) error {
	if err := e.gate.Acquire(ctx); err != nil {
		return err
	}
	defer e.gate.Release()

	snap := e.log.Snapshot()
	filled := 0
	for i := range snap {
		img, ok := snap[i].ImagePayload()
		if !ok || img.Thumb != nil {
			continue
		}
		key, thumb, err := e.thumbnail(ctx, snap[i].ID, img)
		if err != nil {
			e.logger.Debug("image refill skipped", zap.Int64("id", snap[i].ID), zap.Error(err))
			continue
		}
		if e.log.setThumb(i, key, thumb) {
			filled++
			e.bus.Emit(bus.KindImageReady, bus.ImageReady{Index: i})
		}
	}
	if filled > 0 {
		e.logger.Debug("images refilled", zap.Int("count", filled))
	}
	return nil
}

func (e *Engine) thumbnail(ctx context.Context, id int64, img *chat.Image) (string, image.Image, error) {
	key, err := e.store.CacheKeyByID(id)
	if err != nil {
		return "", nil, fmt.Errorf("cache key: %w", err)
	}
	if key == "" {
		key = imagecache.NewKey()
		if err := e.store.SetCacheKey(id, key); err != nil {
			return "", nil, fmt.Errorf("set cache key: %w", err)
		}
	}
	full, err := e.cache.Fill(ctx, key, img.Link, e.download)
	if err != nil {
		return "", nil, err
	}
	return key, imagecache.Thumbnail(full, e.opts.ThumbnailSize), nil
}

// ErrNoImage is returned by FullImage for an index that holds no image.
var ErrNoImage = errors.New("message has no image")

// FullImage returns the full-resolution picture for the message at index,
// downloading it into the cache if needed.
func (e *Engine) FullImage(ctx context.Context, index int) (image.Image, error) {
	m, ok := e.log.At(index)
	if !ok {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	img, ok := m.ImagePayload()
	if !ok {
		return nil, ErrNoImage
	}
	key := img.CacheKey
	if key == "" {
		var err error
		if key, err = e.store.CacheKeyByID(m.ID); err != nil {
			return nil, err
		}
	}
	if key == "" {
		return nil, fmt.Errorf("message %d: %w", m.ID, imagecache.ErrMiss)
	}
	return e.cache.Fill(ctx, key, img.Link, e.download)
}

func (e *Engine) download(ctx context.Context, link string) ([]byte, error) {
	data, _, err := e.feed.DownloadImage(ctx, link)
	return data, err
}

func (e *Engine) observe(reachable bool) {
	if e.machine != nil {
		e.machine.Observe(reachable)
	}
}

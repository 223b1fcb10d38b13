// Package imagecache stores full-resolution images on disk under locally
// generated keys and derives in-memory thumbnails from them.
package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrMiss is returned by Load when no entry exists for a key.
var ErrMiss = errors.New("image not cached")

// Downloader fetches the encoded bytes behind a remote image link.
type Downloader func(ctx context.Context, link string) ([]byte, error)

// Cache is a directory of encoded images, one file per key. Entries are never
// evicted.
type Cache struct {
	dir string
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// NewKey returns a fresh time-ordered cache key.
func NewKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (c *Cache) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(c.dir, key), nil
}

// Has reports whether an entry exists for key.
func (c *Cache) Has(key string) bool {
	p, err := c.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Put stores encoded image bytes under key. The bytes must decode completely
// as an image; the file appears atomically.
func (c *Cache) Put(key string, data []byte) error {
	_, err := c.put(key, data)
	return err
}

func (c *Cache) put(key string, data []byte) (image.Image, error) {
	p, err := c.path(key)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".put-*")
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	return img, nil
}

// Load decodes the full-resolution image stored under key.
func (c *Cache) Load(key string) (image.Image, error) {
	p, err := c.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", key, ErrMiss)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return img, nil
}

// Fill makes sure key is present, downloading link on a miss, and returns the
// decoded full-resolution image. An entry that no longer decodes is dropped and
// downloaded again.
func (c *Cache) Fill(ctx context.Context, key, link string, download Downloader) (image.Image, error) {
	if c.Has(key) {
		img, err := c.Load(key)
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, ErrMiss) {
			if rmErr := c.Remove(key); rmErr != nil {
				return nil, errors.Join(err, rmErr)
			}
		}
	}
	data, err := download(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", link, err)
	}
	return c.put(key, data)
}

// Remove deletes the entry for key, if any.
func (c *Cache) Remove(key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

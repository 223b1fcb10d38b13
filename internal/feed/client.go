package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/feedchat/feedchat/internal/chat"
	"go.uber.org/zap"
)

// API is the remote feed as consumed by the engine and the dispatcher.
// A non-nil error comes with StatusTransport when no response was received,
// or with the response's classification when the body could not be used.
type API interface {
	FetchMessages(ctx context.Context, afterID int64, limit int) (chat.Page, Status, error)
	DownloadImage(ctx context.Context, link string) ([]byte, Status, error)
	SubmitText(ctx context.Context, body []byte) (Status, error)
	SubmitImage(ctx context.Context, sender, filePath string) (Status, error)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Channel        string
	ConnectTimeout time.Duration
}

// Client talks to the feed server over HTTP.
type Client struct {
	base    *url.URL
	channel string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a feed client. Only the dial is bounded by
// ConnectTimeout; reads are not separately limited.
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("feed url %q must be absolute", opts.BaseURL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext

	return &Client{
		base:    base,
		channel: opts.Channel,
		http:    &http.Client{Transport: transport},
		logger:  logger,
	}, nil
}

func (c *Client) endpoint(elem ...string) string {
	return c.base.JoinPath(elem...).String()
}

// FetchMessages returns up to limit entries starting at afterID. Malformed
// entries are logged and left out of the page but still count toward LastID.
func (c *Client) FetchMessages(ctx context.Context, afterID int64, limit int) (chat.Page, Status, error) {
	q := url.Values{}
	q.Set("lastKnownId", strconv.FormatInt(afterID, 10))
	q.Set("limit", strconv.Itoa(limit))
	u := c.endpoint(c.channel) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return chat.Page{}, StatusUnknown, err
	}
	body, status, err := c.do(req)
	if err != nil {
		return chat.Page{}, status, err
	}

	page, rejected, err := chat.DecodeMessages(body)
	if err != nil {
		return chat.Page{}, StatusUnknown, err
	}
	for _, r := range rejected {
		c.logger.Warn("skipping malformed feed entry", zap.Error(r))
	}
	return page, StatusOK, nil
}

// DownloadImage fetches the full-resolution bytes behind an image link.
func (c *Client) DownloadImage(ctx context.Context, link string) ([]byte, Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("img", link), nil)
	if err != nil {
		return nil, StatusUnknown, err
	}
	return c.do(req)
}

// SubmitText posts an encoded text message.
func (c *Client) SubmitText(ctx context.Context, body []byte) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.channel), bytes.NewReader(body))
	if err != nil {
		return StatusUnknown, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	_, status, err := c.do(req)
	return status, err
}

// SubmitImage uploads the file at filePath as a multipart message.
func (c *Client) SubmitImage(ctx context.Context, sender, filePath string) (Status, error) {
	header, err := chat.EncodeImageHeader(sender)
	if err != nil {
		return StatusUnknown, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return StatusUnknown, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("msg", string(header)); err != nil {
		return StatusUnknown, err
	}
	part, err := w.CreateFormFile("picture", filepath.Base(filePath))
	if err != nil {
		return StatusUnknown, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return StatusUnknown, fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return StatusUnknown, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.channel), &buf)
	if err != nil {
		return StatusUnknown, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	_, status, err := c.do(req)
	return status, err
}

func (c *Client) do(req *http.Request) ([]byte, Status, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, StatusTransport, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	status := Classify(resp.StatusCode)
	if status != StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, status, &StatusError{Status: status, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, StatusUnknown, fmt.Errorf("read body: %w", err)
	}
	return body, StatusOK, nil
}

// Code extracts the raw HTTP code from an error returned by the client, or 0.
func Code(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

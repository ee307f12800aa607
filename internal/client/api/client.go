package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/offline"
)

const defaultTimeout = 15 * time.Second

// Client calls the gateway REST endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a client. transport is normally the offline controller.
func New(baseURL string, transport http.RoundTripper, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: defaultTimeout},
		logger:  logger.With().Str("component", "api_client").Logger(),
	}
}

// ListItems fetches the feed, newest first.
func (c *Client) ListItems(ctx context.Context) Result[[]dto.ItemResponse] {
	return do[[]dto.ItemResponse](ctx, c, http.MethodGet, "/api/items", nil)
}

// CreateItem posts a new item.
func (c *Client) CreateItem(ctx context.Context, payload dto.ItemCreateRequest) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, "/api/items", payload)
}

// Like increments the like counter of id.
func (c *Client) Like(ctx context.Context, id string) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, itemPath(id, "like"), nil)
}

// Unlike decrements the like counter of id.
func (c *Client) Unlike(ctx context.Context, id string) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, itemPath(id, "unlike"), nil)
}

// DeleteItem removes id and its comments.
func (c *Client) DeleteItem(ctx context.Context, id string) Result[Ack] {
	return do[Ack](ctx, c, http.MethodDelete, itemPath(id, ""), nil)
}

// AddComment appends a comment to id.
func (c *Client) AddComment(ctx context.Context, id string, payload dto.CommentCreateRequest) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, itemPath(id, "comments"), payload)
}

// ListComments fetches the comments of id, newest first.
func (c *Client) ListComments(ctx context.Context, id string) Result[[]dto.CommentResponse] {
	return do[[]dto.CommentResponse](ctx, c, http.MethodGet, itemPath(id, "comments"), nil)
}

// RecentComments fetches the three newest comments of id.
func (c *Client) RecentComments(ctx context.Context, id string) Result[[]dto.CommentResponse] {
	return do[[]dto.CommentResponse](ctx, c, http.MethodGet, itemPath(id, "recent-comments"), nil)
}

// PostChatMessage sends a message to the room.
func (c *Client) PostChatMessage(ctx context.Context, payload dto.ChatPostRequest) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, "/api/chat/messages", payload)
}

// ListChatMessages fetches up to limit recent messages, oldest first. limit 0 uses the gateway default.
func (c *Client) ListChatMessages(ctx context.Context, limit int) Result[[]dto.ChatMessageResponse] {
	path := "/api/chat/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return do[[]dto.ChatMessageResponse](ctx, c, http.MethodGet, path, nil)
}

// StreamURL is the websocket address of the chat push stream.
func (c *Client) StreamURL() string {
	u, err := url.Parse(c.baseURL + "/api/chat/stream")
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

func itemPath(id, action string) string {
	path := "/api/items/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}

func do[T any](ctx context.Context, c *Client, method, path string, payload any) Result[T] {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Fail[T](fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Fail[T](err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		req.Header.Set(middleware.CorrelationHeader, correlation)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Fail[T](ctx.Err())
		}
		c.logger.Debug().Err(err).Str("path", path).Msg("request did not reach the gateway")
		return Offline[T]()
	}
	defer resp.Body.Close()

	return decode[T](resp)
}

// decode classifies a response. Offline markers set by the offline layer take
// precedence over the status code.
func decode[T any](resp *http.Response) Result[T] {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fail[T](fmt.Errorf("%w: read body: %v", ErrServer, err))
	}

	if resp.Header.Get(offline.HeaderOffline) != "" {
		return Offline[T]()
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var data T
		if err := json.Unmarshal(raw, &data); err != nil {
			return Fail[T](fmt.Errorf("%w: decode response: %v", ErrServer, err))
		}
		result := Ok(data)
		result.Stale = resp.Header.Get(offline.HeaderOfflineCache) != ""
		return result
	}

	message := errorMessage(raw, resp.Status)
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return Fail[T](fmt.Errorf("%w: %s", ErrValidation, message))
	case resp.StatusCode == http.StatusNotFound:
		return Fail[T](fmt.Errorf("%w: %s", ErrNotFound, message))
	default:
		return Fail[T](fmt.Errorf("%w: %s", ErrServer, message))
	}
}

func errorMessage(raw []byte, fallback string) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fallback
}

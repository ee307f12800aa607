// Package offline interposes on the board client's outbound HTTP traffic the
// way a service worker does in the browser: app shell files are served
// cache-first, API calls network-first with degraded responses when the
// network is gone.
package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/observability"
)

const (
	staticCachePrefix = "lost-and-found-"
	apiCachePrefix    = "lost-and-found-api-"

	// HeaderOffline marks responses synthesized because the network was unreachable.
	HeaderOffline = "X-Offline"
	// HeaderOfflineCache marks cached responses replayed while offline.
	HeaderOfflineCache = "X-Offline-Cache"

	offlineReadMessage  = "You are currently offline. Please check your internet connection."
	offlineWriteMessage = "Unable to complete request while offline"
)

// DefaultShell lists the app shell paths precached on install.
var DefaultShell = []string{
	"/",
	"/index.html",
	"/post.html",
	"/chat.html",
	"/style.css",
	"/app.js",
	"/post.js",
	"/chat.js",
	"/manifest.json",
}

// Options configures a Layer.
type Options struct {
	Version   string
	Origin    *url.URL
	Shell     []string
	Storage   Storage
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// Layer is one installed version of the offline cache. It implements
// http.RoundTripper.
type Layer struct {
	version   string
	origin    *url.URL
	shell     []string
	storage   Storage
	transport http.RoundTripper
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLayer builds a layer for opts.Version. Nothing is cached until Install.
func NewLayer(opts Options) *Layer {
	if opts.Version == "" {
		opts.Version = "v1.0.0"
	}
	if opts.Storage == nil {
		opts.Storage = NewMemoryStorage()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Shell == nil {
		opts.Shell = DefaultShell
	}
	return &Layer{
		version:   opts.Version,
		origin:    opts.Origin,
		shell:     opts.Shell,
		storage:   opts.Storage,
		transport: opts.Transport,
		logger:    opts.Logger.With().Str("component", "offline_layer").Str("version", opts.Version).Logger(),
		now:       time.Now,
	}
}

// Version reports the layer version.
func (l *Layer) Version() string {
	return l.version
}

// StaticCacheName is the generation holding app shell files.
func (l *Layer) StaticCacheName() string {
	return staticCachePrefix + l.version
}

// APICacheName is the generation holding API read responses.
func (l *Layer) APICacheName() string {
	return apiCachePrefix + l.version
}

// Install precaches the app shell. Files that fail to download are skipped
// and reported together in the returned error.
func (l *Layer) Install(ctx context.Context) error {
	if l.origin == nil {
		return nil
	}

	var errs []error
	for _, path := range l.shell {
		target := l.origin.ResolveReference(&url.URL{Path: path})
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		resp, err := l.transport.RoundTrip(req)
		if err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", path, err))
			continue
		}
		if _, err := l.store(ctx, l.StaticCacheName(), req, resp); err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", path, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		l.logger.Warn().Err(err).Msg("app shell partially cached")
		return err
	}
	l.logger.Info().Int("files", len(l.shell)).Msg("app shell cached")
	return nil
}

// Activate deletes every generation that does not belong to this version.
func (l *Layer) Activate(ctx context.Context) error {
	names, err := l.storage.Generations(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == l.StaticCacheName() || name == l.APICacheName() {
			continue
		}
		if err := l.storage.DeleteGeneration(ctx, name); err != nil {
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
		l.logger.Info().Str("cache", name).Msg("deleted stale cache")
	}
	return nil
}

// ClearAll drops every generation, including this version's.
func (l *Layer) ClearAll(ctx context.Context) error {
	names, err := l.storage.Generations(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := l.storage.DeleteGeneration(ctx, name); err != nil {
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
	}
	l.logger.Info().Int("caches", len(names)).Msg("offline caches cleared")
	return nil
}

// SyncPending is the background sync hook. Writes are never queued, so
// there is nothing to replay.
func (l *Layer) SyncPending(ctx context.Context) error {
	l.logger.Debug().Msg("background sync requested, no pending writes are stored")
	return ctx.Err()
}

// RoundTrip routes API calls network-first and everything else cache-first.
func (l *Layer) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return l.networkFirst(req)
	}
	return l.cacheFirst(req)
}

func (l *Layer) networkFirst(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, err := l.transport.RoundTrip(req)
	if err == nil {
		if req.Method == http.MethodGet && isOK(resp.StatusCode) {
			stored, storeErr := l.store(ctx, l.APICacheName(), req, resp)
			if storeErr != nil {
				l.logger.Warn().Err(storeErr).Str("url", req.URL.String()).Msg("failed to cache api response")
			}
			if stored != nil {
				resp = stored
			}
		}
		record("network_first", "network")
		return resp, nil
	}

	if ctx.Err() != nil {
		return nil, err
	}
	l.logger.Debug().Err(err).Str("url", req.URL.String()).Msg("network request failed, trying cache")

	if req.Method != http.MethodGet {
		record("network_first", "offline_write")
		return jsonResponse(req, http.StatusServiceUnavailable, map[string]any{"error": offlineWriteMessage}), nil
	}

	if cached, ok := l.lookup(ctx, l.APICacheName(), req); ok {
		record("network_first", "cache")
		cached.Header.Set(HeaderOfflineCache, "hit")
		return cached, nil
	}

	record("network_first", "offline_read")
	return jsonResponse(req, http.StatusOK, map[string]any{"error": offlineReadMessage, "offline": true}), nil
}

func (l *Layer) cacheFirst(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return l.transport.RoundTrip(req)
	}

	ctx := req.Context()
	if cached, ok := l.lookup(ctx, l.StaticCacheName(), req); ok {
		record("cache_first", "cache")
		return cached, nil
	}

	resp, err := l.transport.RoundTrip(req)
	if err == nil {
		if isOK(resp.StatusCode) {
			stored, storeErr := l.store(ctx, l.StaticCacheName(), req, resp)
			if storeErr != nil {
				l.logger.Warn().Err(storeErr).Str("url", req.URL.String()).Msg("failed to cache static response")
			}
			if stored != nil {
				resp = stored
			}
		}
		record("cache_first", "network")
		return resp, nil
	}

	if ctx.Err() != nil || !isNavigation(req) {
		record("cache_first", "error")
		return nil, err
	}

	shell := req.Clone(ctx)
	shell.URL.Path = "/index.html"
	shell.URL.RawQuery = ""
	if cached, ok := l.lookup(ctx, l.StaticCacheName(), shell); ok {
		record("cache_first", "shell")
		cached.Request = req
		return cached, nil
	}

	record("cache_first", "offline_read")
	resp = textResponse(req, http.StatusOK, "Offline")
	resp.Header.Set(HeaderOffline, "1")
	return resp, nil
}

func (l *Layer) lookup(ctx context.Context, generation string, req *http.Request) (*http.Response, bool) {
	entry, ok, err := l.storage.Get(ctx, generation, cacheKey(req))
	if err != nil {
		l.logger.Warn().Err(err).Str("cache", generation).Msg("cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return entry.response(req), true
}

// store copies a successful response into generation. The returned response
// replaces resp, whose body has been consumed.
func (l *Layer) store(ctx context.Context, generation string, req *http.Request, resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	entry := CachedResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: l.now().UTC(),
	}
	replay := entry.response(req)
	if !isOK(resp.StatusCode) {
		return replay, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := l.storage.Put(ctx, generation, cacheKey(req), entry); err != nil {
		return replay, err
	}
	return replay, nil
}

func (c CachedResponse) response(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.Status, http.StatusText(c.Status)),
		StatusCode:    c.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

func jsonResponse(req *http.Request, status int, payload map[string]any) *http.Response {
	body, _ := json.Marshal(payload)
	resp := CachedResponse{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}.response(req)
	resp.Header.Set(HeaderOffline, "1")
	return resp
}

func textResponse(req *http.Request, status int, body string) *http.Response {
	return CachedResponse{
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   []byte(body),
	}.response(req)
}

func cacheKey(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	return req.Method + " " + u.String()
}

// isNavigation reports whether req loads a top-level document.
func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" || req.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}

func record(strategy, outcome string) {
	observability.OfflineLayerResponses().WithLabelValues(strategy, outcome).Inc()
}

package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/devicestore"
	"github.com/noah-isme/lostfound-api/internal/dto"
)

const (
	controlSubmit = "submit"

	msgLoadFailed    = "Error loading items. Please try again."
	msgOffline       = "You are offline. Check your connection and retry."
	msgLikeFailed    = "Could not update like. Please try again."
	msgUploadFailed  = "Error uploading item."
	msgDeleteFailed  = "Error deleting item."
	msgCommentFailed = "Error posting comment."
)

// Submission is the item form.
type Submission struct {
	Name        string
	Number      string
	Description string
	Photo       []byte
}

// FeedEngine drives the item feed.
type FeedEngine struct {
	backend FeedBackend
	view    FeedView
	store   devicestore.Store
	logger  zerolog.Logger

	// RefreshInterval reloads the feed periodically after Start. Zero disables it.
	RefreshInterval time.Duration

	mu      sync.Mutex
	items   []dto.ItemResponse
	likes   map[string]*LikeState
	busy    map[string]bool
	offline bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeedEngine wires a feed engine.
func NewFeedEngine(backend FeedBackend, view FeedView, store devicestore.Store, logger zerolog.Logger) *FeedEngine {
	return &FeedEngine{
		backend: backend,
		view:    view,
		store:   store,
		logger:  logger.With().Str("component", "feed_engine").Logger(),
		likes:   make(map[string]*LikeState),
		busy:    make(map[string]bool),
	}
}

// Start loads the feed and, when RefreshInterval is set, keeps reloading it.
func (e *FeedEngine) Start(ctx context.Context) error {
	e.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	err := e.Reload(runCtx)
	if e.RefreshInterval > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(e.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					_ = e.Reload(runCtx)
				}
			}
		}()
	}
	return err
}

// Stop ends periodic reloading.
func (e *FeedEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

// Reload fetches the feed and replaces what is shown. Liked flags come from
// device storage.
func (e *FeedEngine) Reload(ctx context.Context) error {
	result := e.backend.ListItems(ctx)
	switch result.State {
	case api.StateOffline:
		e.setOffline(true)
		e.view.ShowLoadError(msgOffline)
		return result.Err
	case api.StateError:
		e.logger.Warn().Err(result.Err).Msg("feed load failed")
		e.view.ShowLoadError(msgLoadFailed)
		return result.Err
	}
	e.setOffline(result.Stale)

	liked, err := e.likedSet(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("read like flags")
	}

	e.mu.Lock()
	e.items = result.Data
	next := make(map[string]*LikeState, len(result.Data))
	shown := make([]FeedItem, 0, len(result.Data))
	for _, item := range result.Data {
		state, ok := e.likes[item.ID]
		if !ok {
			state = &LikeState{}
		}
		state.Resync(item.Likes)
		next[item.ID] = state
		shown = append(shown, FeedItem{Item: item, Liked: liked[item.ID], Likes: state.Displayed()})
	}
	e.likes = next
	e.mu.Unlock()

	e.view.RenderFeed(shown)
	return nil
}

// Items returns the items from the last successful load.
func (e *FeedEngine) Items() []dto.ItemResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]dto.ItemResponse, len(e.items))
	copy(out, e.items)
	return out
}

// Likes returns the displayed like count of id.
func (e *FeedEngine) Likes(id string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state, ok := e.likes[id]; ok {
		return state.Displayed()
	}
	return 0
}

// Liked reports whether this device has liked id.
func (e *FeedEngine) Liked(ctx context.Context, id string) bool {
	value, ok, err := e.store.Get(ctx, likeKeyPrefix+id)
	return err == nil && ok && value == "1"
}

// ToggleLike flips this device's like on id. The flag and count change
// immediately and are reverted if the gateway call fails.
func (e *FeedEngine) ToggleLike(ctx context.Context, id string) error {
	return e.setLiked(ctx, id, func(current bool) bool { return !current })
}

// Like marks id as liked unless it already is.
func (e *FeedEngine) Like(ctx context.Context, id string) error {
	return e.setLiked(ctx, id, func(bool) bool { return true })
}

// Unlike removes this device's like from id unless it has none.
func (e *FeedEngine) Unlike(ctx context.Context, id string) error {
	return e.setLiked(ctx, id, func(bool) bool { return false })
}

// setLiked reads the stored flag only while holding the like control of id,
// so overlapping calls never act on the same stale flag.
func (e *FeedEngine) setLiked(ctx context.Context, id string, want func(current bool) bool) error {
	control := "like:" + id
	if !e.acquire(control) {
		return ErrBusy
	}
	defer e.release(control)

	current := e.Liked(ctx, id)
	liked := want(current)
	if liked == current {
		return nil
	}

	delta := int64(1)
	if !liked {
		delta = -1
	}
	if err := e.writeLikeFlag(ctx, id, liked); err != nil {
		return err
	}
	e.view.UpdateLike(id, liked, e.applyLike(id, func(s *LikeState) { s.Begin(delta) }))

	var result api.Result[api.Ack]
	if liked {
		result = e.backend.Like(ctx, id)
	} else {
		result = e.backend.Unlike(ctx, id)
	}

	if result.IsOK() {
		e.applyLike(id, (*LikeState).Commit)
		return nil
	}

	if err := e.writeLikeFlag(ctx, id, !liked); err != nil {
		e.logger.Warn().Err(err).Str("item_id", id).Msg("revert like flag")
	}
	e.view.UpdateLike(id, !liked, e.applyLike(id, (*LikeState).Rollback))
	if result.State == api.StateOffline {
		e.setOffline(true)
	}
	e.view.Alert(msgLikeFailed)
	return result.Err
}

func (e *FeedEngine) applyLike(id string, fn func(*LikeState)) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.likes[id]
	if !ok {
		state = &LikeState{}
		e.likes[id] = state
	}
	fn(state)
	return state.Displayed()
}

func (e *FeedEngine) writeLikeFlag(ctx context.Context, id string, liked bool) error {
	if liked {
		return e.store.Set(ctx, likeKeyPrefix+id, "1")
	}
	return e.store.Delete(ctx, likeKeyPrefix+id)
}

func (e *FeedEngine) likedSet(ctx context.Context) (map[string]bool, error) {
	keys, err := e.store.Keys(ctx, likeKeyPrefix)
	if err != nil {
		return nil, err
	}
	liked := make(map[string]bool, len(keys))
	for _, key := range keys {
		value, ok, err := e.store.Get(ctx, key)
		if err != nil {
			return liked, err
		}
		if ok && value == "1" {
			liked[strings.TrimPrefix(key, likeKeyPrefix)] = true
		}
	}
	return liked, nil
}

// Submit posts a new item. The photo is sent inline as a data URL. On
// success the uploader identity is remembered for Autofill and the feed is
// reloaded.
func (e *FeedEngine) Submit(ctx context.Context, form Submission) (string, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Number = strings.TrimSpace(form.Number)
	form.Description = strings.TrimSpace(form.Description)
	if form.Name == "" || form.Number == "" || form.Description == "" {
		e.view.Alert("Please fill in all fields.")
		return "", fmt.Errorf("%w: name, number and description are required", ErrInvalidInput)
	}
	if len(form.Photo) == 0 {
		e.view.Alert("Please select a photo.")
		return "", fmt.Errorf("%w: photo is required", ErrInvalidInput)
	}

	if !e.acquire(controlSubmit) {
		return "", ErrBusy
	}
	defer e.release(controlSubmit)

	result := e.backend.CreateItem(ctx, dto.ItemCreateRequest{
		Name:        form.Name,
		Number:      form.Number,
		Description: form.Description,
		Photo:       DataURL(form.Photo),
	})
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		}
		e.view.Alert(msgUploadFailed)
		return "", result.Err
	}

	if err := e.store.Set(ctx, keyUploaderName, form.Name); err != nil {
		e.logger.Warn().Err(err).Msg("remember uploader name")
	}
	if err := e.store.Set(ctx, keyUploaderNumber, form.Number); err != nil {
		e.logger.Warn().Err(err).Msg("remember uploader number")
	}

	_ = e.Reload(ctx)
	return result.Data.ID, nil
}

// Autofill returns the identity used for the last successful upload.
func (e *FeedEngine) Autofill(ctx context.Context) (name, number string) {
	name, _, _ = e.store.Get(ctx, keyUploaderName)
	number, _, _ = e.store.Get(ctx, keyUploaderNumber)
	return name, number
}

// RecentUploads filters the loaded feed to items posted under the
// remembered uploader identity.
func (e *FeedEngine) RecentUploads(ctx context.Context) []dto.ItemResponse {
	name, number := e.Autofill(ctx)
	if name == "" || number == "" {
		return nil
	}
	var out []dto.ItemResponse
	for _, item := range e.Items() {
		if item.Name == name && item.Number == number {
			out = append(out, item)
		}
	}
	return out
}

// DeleteOwn deletes id if it was uploaded under the remembered identity.
// The gateway does not check ownership; this is a client side convention.
func (e *FeedEngine) DeleteOwn(ctx context.Context, id string) error {
	name, number := e.Autofill(ctx)
	owned := false
	for _, item := range e.Items() {
		if item.ID == id {
			owned = name != "" && item.Name == name && item.Number == number
			break
		}
	}
	if !owned {
		e.view.Alert(ErrNotOwner.Error())
		return ErrNotOwner
	}

	control := "delete:" + id
	if !e.acquire(control) {
		return ErrBusy
	}
	defer e.release(control)

	result := e.backend.DeleteItem(ctx, id)
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		}
		e.view.Alert(msgDeleteFailed)
		return result.Err
	}
	if err := e.store.Delete(ctx, likeKeyPrefix+id); err != nil {
		e.logger.Warn().Err(err).Str("item_id", id).Msg("drop like flag")
	}
	_ = e.Reload(ctx)
	return nil
}

// Comments returns the comments of id oldest first.
func (e *FeedEngine) Comments(ctx context.Context, id string) ([]dto.CommentResponse, error) {
	result := e.backend.ListComments(ctx, id)
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		}
		return nil, result.Err
	}
	comments := make([]dto.CommentResponse, len(result.Data))
	for i, comment := range result.Data {
		comments[len(result.Data)-1-i] = comment
	}
	return comments, nil
}

// AddComment posts a comment on id and returns the refreshed comment list.
func (e *FeedEngine) AddComment(ctx context.Context, id, name, text string) ([]dto.CommentResponse, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" || text == "" {
		return nil, fmt.Errorf("%w: name and comment are required", ErrInvalidInput)
	}

	control := "comment:" + id
	if !e.acquire(control) {
		return nil, ErrBusy
	}
	defer e.release(control)

	result := e.backend.AddComment(ctx, id, dto.CommentCreateRequest{Name: name, Text: text})
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		}
		e.view.Alert(msgCommentFailed)
		return nil, result.Err
	}
	return e.Comments(ctx, id)
}

func (e *FeedEngine) acquire(control string) bool {
	e.mu.Lock()
	if e.busy[control] {
		e.mu.Unlock()
		return false
	}
	e.busy[control] = true
	e.mu.Unlock()
	e.view.SetBusy(control, true)
	return true
}

func (e *FeedEngine) release(control string) {
	e.mu.Lock()
	delete(e.busy, control)
	e.mu.Unlock()
	e.view.SetBusy(control, false)
}

func (e *FeedEngine) setOffline(offline bool) {
	e.mu.Lock()
	changed := e.offline != offline
	e.offline = offline
	e.mu.Unlock()
	if changed {
		e.view.SetOffline(offline)
	}
}

// DataURL encodes raw file bytes as a data URL using the sniffed media type.
func DataURL(raw []byte) string {
	mediaType := mimetype.Detect(raw).String()
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// IsOffline reports whether err came from a call that never reached the gateway.
func IsOffline(err error) bool {
	return errors.Is(err, api.ErrOffline)
}

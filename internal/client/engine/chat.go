package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/devicestore"
	"github.com/noah-isme/lostfound-api/internal/client/render"
	"github.com/noah-isme/lostfound-api/internal/dto"
)

const (
	maxChatNameRunes    = 30
	maxChatMessageRunes = 500
	maxChatImageBytes   = 5 * 1024 * 1024

	msgNoMessages     = "No messages yet. Start the conversation!"
	msgCleared        = "Messages cleared locally"
	msgJoinPrompt     = "Enter a name to join the chat."
	msgMessagesFailed = "Failed to load messages."
	msgSendFailed     = "Failed to send message. Please try again."
	msgImageFailed    = "Failed to send image. Please try again."
)

// ChatEngine drives the chat room.
type ChatEngine struct {
	backend ChatBackend
	view    ChatView
	store   devicestore.Store
	source  UpdateSource
	logger  zerolog.Logger

	refreshMu sync.Mutex

	mu        sync.Mutex
	name      string
	messages  []dto.ChatMessageResponse
	loaded    bool
	replyTo   *dto.ChatReply
	sending   bool
	uploading bool
	offline   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewChatEngine wires a chat engine. source may be nil, in which case the
// room only refreshes after the user's own actions.
func NewChatEngine(backend ChatBackend, view ChatView, store devicestore.Store, source UpdateSource, logger zerolog.Logger) *ChatEngine {
	return &ChatEngine{
		backend: backend,
		view:    view,
		store:   store,
		source:  source,
		logger:  logger.With().Str("component", "chat_engine").Logger(),
	}
}

// Start rejoins under the remembered display name, if any.
func (e *ChatEngine) Start(ctx context.Context) error {
	name, ok, err := e.store.Get(ctx, keyChatDisplayName)
	if err != nil {
		return fmt.Errorf("read chat name: %w", err)
	}
	if !ok || name == "" {
		e.view.SetJoined("")
		e.view.ShowEmpty(msgJoinPrompt)
		return nil
	}
	return e.Join(ctx, name)
}

// Stop ends background refreshing. The display name stays remembered.
func (e *ChatEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

// Name is the current display name, empty before Join.
func (e *ChatEngine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// Messages returns the messages currently rendered.
func (e *ChatEngine) Messages() []dto.ChatMessageResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]dto.ChatMessageResponse, len(e.messages))
	copy(out, e.messages)
	return out
}

// Join sets the display name, loads the room and starts following it.
func (e *ChatEngine) Join(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		e.view.Alert("Please enter your name.")
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxChatNameRunes {
		e.view.Alert(fmt.Sprintf("Name must be %d characters or less.", maxChatNameRunes))
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxChatNameRunes)
	}
	if err := e.store.Set(ctx, keyChatDisplayName, name); err != nil {
		return fmt.Errorf("remember chat name: %w", err)
	}

	e.Stop()
	e.mu.Lock()
	e.name = name
	e.mu.Unlock()
	e.view.SetJoined(name)

	err := e.Refresh(ctx)
	e.view.ScrollToBottom()
	e.follow(ctx)
	return err
}

// Leave forgets the display name, stops following and clears the view.
func (e *ChatEngine) Leave(ctx context.Context) error {
	e.Stop()
	e.mu.Lock()
	e.name = ""
	e.messages = nil
	e.loaded = false
	e.replyTo = nil
	e.mu.Unlock()

	e.view.ShowReply(nil)
	e.view.RenderMessages(nil)
	e.view.SetJoined("")
	e.view.ShowEmpty(msgJoinPrompt)
	return e.store.Delete(ctx, keyChatDisplayName)
}

// Refresh fetches the room and updates the view with the least work:
// nothing, an append of new messages or a full render.
func (e *ChatEngine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	result := e.backend.ListChatMessages(ctx, 0)
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		} else {
			e.logger.Warn().Err(result.Err).Msg("chat load failed")
		}
		e.mu.Lock()
		empty := len(e.messages) == 0
		e.mu.Unlock()
		if empty {
			e.view.ShowEmpty(msgMessagesFailed)
		}
		return result.Err
	}
	e.setOffline(result.Stale)

	wasAtBottom := e.view.AtBottom()
	incoming := result.Data

	e.mu.Lock()
	local := e.messages
	action, draw := PlanRender(local, incoming, e.loaded)
	var prev *dto.ChatMessageResponse
	if action == RenderAppend {
		last := local[len(local)-1]
		prev = &last
	}
	e.messages = incoming
	e.loaded = true
	self := e.name
	e.mu.Unlock()

	switch action {
	case RenderNone:
		return nil
	case RenderAppend:
		e.view.AppendMessages(render.Group(prev, draw, self))
	default:
		if len(draw) == 0 {
			e.view.RenderMessages(nil)
			e.view.ShowEmpty(msgNoMessages)
			return nil
		}
		e.view.RenderMessages(render.Group(nil, draw, self))
	}

	if newest := incoming[len(incoming)-1]; wasAtBottom || (self != "" && newest.Name == self) {
		e.view.ScrollToBottom()
	}
	return nil
}

// Send posts text to the room. Blank input is ignored. The send control is
// disabled until the call settles and nothing is queued meanwhile.
func (e *ChatEngine) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > maxChatMessageRunes {
		e.view.Alert(fmt.Sprintf("Message must be %d characters or less.", maxChatMessageRunes))
		return fmt.Errorf("%w: message must be at most %d characters", ErrInvalidInput, maxChatMessageRunes)
	}
	return e.post(ctx, dto.ChatPostRequest{Message: text}, &e.sending, e.view.SetSendEnabled, msgSendFailed)
}

// SendImage posts raw image bytes to the room.
func (e *ChatEngine) SendImage(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	if len(raw) > maxChatImageBytes {
		e.view.Alert("Image size must be less than 5MB.")
		return fmt.Errorf("%w: image exceeds 5MB", ErrInvalidInput)
	}
	detected := mimetype.Detect(raw)
	if !strings.HasPrefix(detected.String(), "image/") {
		e.view.Alert("Please select an image file.")
		return fmt.Errorf("%w: %s is not an image", ErrInvalidInput, detected.String())
	}
	payload := dto.ChatPostRequest{Image: DataURL(raw), ImageType: detected.String()}
	return e.post(ctx, payload, &e.uploading, e.view.SetUploadEnabled, msgImageFailed)
}

func (e *ChatEngine) post(ctx context.Context, payload dto.ChatPostRequest, flag *bool, setEnabled func(bool), failure string) error {
	e.mu.Lock()
	if e.name == "" {
		e.mu.Unlock()
		return ErrNotJoined
	}
	if *flag {
		e.mu.Unlock()
		return ErrBusy
	}
	*flag = true
	payload.Name = e.name
	if e.replyTo != nil {
		reply := *e.replyTo
		payload.ReplyTo = &reply
	}
	e.mu.Unlock()

	setEnabled(false)
	defer func() {
		e.mu.Lock()
		*flag = false
		e.mu.Unlock()
		setEnabled(true)
	}()

	result := e.backend.PostChatMessage(ctx, payload)
	if !result.IsOK() {
		if result.State == api.StateOffline {
			e.setOffline(true)
		}
		e.view.Alert(failure)
		return result.Err
	}

	e.CancelReply()
	err := e.Refresh(ctx)
	e.view.ScrollToBottom()
	return err
}

// StartReply quotes the rendered message id in the next post.
func (e *ChatEngine) StartReply(id string) error {
	e.mu.Lock()
	var reply *dto.ChatReply
	for _, msg := range e.messages {
		if msg.ID == id {
			reply = &dto.ChatReply{Name: msg.Name, Message: msg.Message, Timestamp: msg.Timestamp, Image: msg.HasImage()}
			break
		}
	}
	e.replyTo = reply
	e.mu.Unlock()

	if reply == nil {
		return fmt.Errorf("%w: message %s is not shown", ErrInvalidInput, id)
	}
	e.view.ShowReply(reply)
	return nil
}

// CancelReply drops the pending quote.
func (e *ChatEngine) CancelReply() {
	e.mu.Lock()
	e.replyTo = nil
	e.mu.Unlock()
	e.view.ShowReply(nil)
}

// ClearLocal empties the view without touching the room. The next refresh
// renders the room again.
func (e *ChatEngine) ClearLocal() {
	e.mu.Lock()
	e.messages = nil
	e.mu.Unlock()
	e.view.RenderMessages(nil)
	e.view.ShowEmpty(msgCleared)
}

func (e *ChatEngine) follow(ctx context.Context) {
	if e.source == nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.source.Run(runCtx, func(ctx context.Context) {
			_ = e.Refresh(ctx)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn().Err(err).Msg("update source stopped")
		}
	}()
}

func (e *ChatEngine) setOffline(offline bool) {
	e.mu.Lock()
	changed := e.offline != offline
	e.offline = offline
	e.mu.Unlock()
	if changed {
		e.view.SetOffline(offline)
	}
}

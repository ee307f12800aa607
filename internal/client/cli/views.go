package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/lostfound-api/internal/client/engine"
	"github.com/noah-isme/lostfound-api/internal/client/render"
	"github.com/noah-isme/lostfound-api/internal/dto"
)

// terminal serializes writes from the engines, which may render from
// background goroutines.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location
}

func (t *terminal) println(args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, args...)
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

type feedView struct {
	*terminal
}

func (v feedView) RenderFeed(items []engine.FeedItem) {
	if len(items) == 0 {
		v.println("No items posted yet.")
		return
	}
	for _, item := range items {
		v.println(render.Item(item.Item, item.Liked, item.Likes, v.loc))
	}
}

func (v feedView) UpdateLike(id string, liked bool, likes int64) {
	heart := "♡"
	if liked {
		heart = "♥"
	}
	v.printf("%s %s %d\n", id, heart, likes)
}

func (v feedView) SetBusy(string, bool) {}

func (v feedView) ShowLoadError(message string) {
	v.printf("error: %s (run \"boardctl feed\" to retry)\n", message)
}

func (v feedView) Alert(message string) {
	v.println("! " + message)
}

func (v feedView) SetOffline(offline bool) {
	if offline {
		v.println("[offline] showing saved data, changes are disabled")
		return
	}
	v.println("[online] connection restored")
}

type chatView struct {
	*terminal
}

func (v chatView) RenderMessages(lines []render.Line) {
	for _, line := range render.ChatLines(lines, v.loc) {
		v.println(line)
	}
}

func (v chatView) AppendMessages(lines []render.Line) {
	v.RenderMessages(lines)
}

func (v chatView) ShowEmpty(message string) {
	v.println(message)
}

func (v chatView) ScrollToBottom() {}

// AtBottom is always true: a terminal follows its newest output.
func (v chatView) AtBottom() bool {
	return true
}

func (v chatView) SetJoined(name string) {
	if name == "" {
		return
	}
	v.printf("Joined the chat as %s\n", render.Plain(name))
}

func (v chatView) SetSendEnabled(bool) {}

func (v chatView) SetUploadEnabled(bool) {}

func (v chatView) ShowReply(reply *dto.ChatReply) {
	if reply == nil {
		return
	}
	v.printf("Replying to %s: %s\n", render.Plain(reply.Name), render.ReplyPreview(reply))
}

func (v chatView) Alert(message string) {
	v.println("! " + message)
}

func (v chatView) SetOffline(offline bool) {
	if offline {
		v.println("[offline] messages cannot be sent until the connection returns")
		return
	}
	v.println("[online] connection restored")
}

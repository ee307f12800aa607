// Package render turns board data into terminal text.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/lostfound-api/internal/dto"
)

const (
	replyPreviewRunes = 50
	imagePlaceholder  = "📷 Image"
)

var strict = bluemonday.StrictPolicy()

// Plain strips markup and control characters from user supplied text.
func Plain(value string) string {
	clean := html.UnescapeString(strict.Sanitize(value))
	return strings.Map(func(r rune) rune {
		if r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, clean)
}

// Line is one chat message as placed in the room view.
type Line struct {
	Message dto.ChatMessageResponse
	Own     bool
	// ShowHeader is false when the previous message came from the same sender.
	ShowHeader bool
}

// Group lays messages out after prev, which is the last message already on
// screen (nil for a fresh render).
func Group(prev *dto.ChatMessageResponse, messages []dto.ChatMessageResponse, self string) []Line {
	lines := make([]Line, 0, len(messages))
	for i, msg := range messages {
		previous := prev
		if i > 0 {
			previous = &messages[i-1]
		}
		lines = append(lines, Line{
			Message:    msg,
			Own:        self != "" && msg.Name == self,
			ShowHeader: previous == nil || previous.Name != msg.Name,
		})
	}
	return lines
}

// ReplyPreview is the quoted text shown above a reply.
func ReplyPreview(reply *dto.ChatReply) string {
	if reply == nil {
		return ""
	}
	if reply.Image {
		return imagePlaceholder
	}
	text := Plain(reply.Message)
	if utf8.RuneCountInString(text) <= replyPreviewRunes {
		return text
	}
	return string([]rune(text)[:replyPreviewRunes]) + "..."
}

// ChatLines formats lines for a terminal.
func ChatLines(lines []Line, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	out := make([]string, 0, len(lines)*2)
	for _, line := range lines {
		msg := line.Message
		if line.ShowHeader {
			marker := ""
			if line.Own {
				marker = " (you)"
			}
			out = append(out, fmt.Sprintf("%s%s  %s", Plain(msg.Name), marker, clock(msg.Timestamp, loc)))
		}
		if msg.ReplyTo != nil {
			out = append(out, fmt.Sprintf("  ┆ %s: %s", Plain(msg.ReplyTo.Name), ReplyPreview(msg.ReplyTo)))
		}
		if msg.HasImage() {
			out = append(out, fmt.Sprintf("  [image %s, %s]", msg.ImageType, humanSize(len(msg.Image))))
		}
		if msg.Message != "" {
			out = append(out, "  "+Plain(msg.Message))
		}
	}
	return out
}

// Item formats one feed entry.
func Item(item dto.ItemResponse, liked bool, likes int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	heart := "♡"
	if liked {
		heart = "♥"
	}
	uploaded := time.UnixMilli(item.Timestamp).In(loc).Format("2006-01-02 15:04")
	return fmt.Sprintf("[%s] %s (%s)\n  %s\n  Uploaded: %s  %s %d",
		item.ID, Plain(item.Name), Plain(item.Number), Plain(item.Description), uploaded, heart, likes)
}

// Comment formats one comment.
func Comment(comment dto.CommentResponse, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	when := time.UnixMilli(comment.Timestamp).In(loc).Format("2006-01-02 15:04")
	return fmt.Sprintf("%s: %s  %s", Plain(comment.Name), Plain(comment.Text), when)
}

func clock(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

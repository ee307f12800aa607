package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/dto"
)

func TestPlainStripsMarkupAndControls(t *testing.T) {
	require.Equal(t, "hi there", Plain("<b>hi</b> there"))
	require.Equal(t, "a < b & c", Plain("a < b & c"))
	require.Equal(t, "[31mred", Plain("\x1b[31mred"))
}

func TestGroupShowsHeaderWhenSenderChanges(t *testing.T) {
	messages := []dto.ChatMessageResponse{
		{ID: "1", Name: "Ana"},
		{ID: "2", Name: "Ana"},
		{ID: "3", Name: "Ben"},
	}

	lines := Group(nil, messages, "Ana")
	require.True(t, lines[0].ShowHeader)
	require.False(t, lines[1].ShowHeader)
	require.True(t, lines[2].ShowHeader)
	require.True(t, lines[0].Own)
	require.False(t, lines[2].Own)

	prev := dto.ChatMessageResponse{ID: "0", Name: "Ana"}
	appended := Group(&prev, messages[:1], "Ana")
	require.False(t, appended[0].ShowHeader)
}

func TestReplyPreview(t *testing.T) {
	require.Equal(t, "📷 Image", ReplyPreview(&dto.ChatReply{Name: "Ana", Message: "ignored", Image: true}))
	require.Equal(t, "short", ReplyPreview(&dto.ChatReply{Message: "short"}))

	long := strings.Repeat("x", 80)
	require.Equal(t, strings.Repeat("x", 50)+"...", ReplyPreview(&dto.ChatReply{Message: long}))
	require.Empty(t, ReplyPreview(nil))
}

func TestChatLinesFormatting(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC).UnixMilli()
	lines := Group(nil, []dto.ChatMessageResponse{
		{ID: "1", Name: "Ana", Message: "found keys", Timestamp: ts},
		{ID: "2", Name: "Ben", Message: "mine!", Timestamp: ts, ReplyTo: &dto.ChatReply{Name: "Ana", Message: "found keys"}},
	}, "Ben")

	out := ChatLines(lines, time.UTC)
	require.Equal(t, []string{
		"Ana  09:30",
		"  found keys",
		"Ben (you)  09:30",
		"  ┆ Ana: found keys",
		"  mine!",
	}, out)
}

func TestItemAndComment(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC).UnixMilli()
	item := dto.ItemResponse{ID: "01H", Name: "Ana", Number: "555", Description: "<i>umbrella</i>", Timestamp: ts}

	text := Item(item, true, 3, time.UTC)
	require.Contains(t, text, "umbrella")
	require.NotContains(t, text, "<i>")
	require.Contains(t, text, "♥ 3")

	require.Equal(t, "Ben: mine  2024-05-01 09:30", Comment(dto.CommentResponse{Name: "Ben", Text: "mine", Timestamp: ts}, time.UTC))
}

package export

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

func testMessages(n int) []model.Message {
	messages := make([]model.Message, n)
	for i := range messages {
		messages[i] = model.Message{
			ID:          fmt.Sprintf("m%d", i+1),
			RoomID:      "r1",
			ChannelName: "main",
			Nickname:    fmt.Sprintf("char-%d", i%2),
			Color:       "#ffffff",
			IconURL:     fmt.Sprintf("https://example.com/head-%d.png", i%2),
			Text:        fmt.Sprintf("line %d", i+1),
			TimestampMs: int64(i+1) * 1000,
		}
	}
	return messages
}

func TestToInterchange(t *testing.T) {
	cmdID := "cmd-1"
	messages := []model.Message{
		{Nickname: "Alice", IMUserID: "u1", UniformID: "Seal:u1", Text: "hello", TimestampMs: 1_700_000_001_500},
		{Nickname: "Bob", Text: "rolling", DiceResult: "1d20=17", IsDice: true, CommandID: &cmdID, TimestampMs: 2000},
	}

	out := ToInterchange(messages)
	require.Equal(t, 105, out.Version)
	require.Len(t, out.Items, 2)

	require.Equal(t, "Alice", out.Items[0].Nickname)
	require.Equal(t, "Seal:u1", out.Items[0].UniformID)
	require.Equal(t, int64(1_700_000_001), out.Items[0].Time, "time is epoch seconds")
	require.Equal(t, "hello", out.Items[0].Message)

	require.Equal(t, "rolling 1d20=17", out.Items[1].Message, "dice result folds into the body")
	require.True(t, out.Items[1].IsDice)
	require.Equal(t, &cmdID, out.Items[1].CommandID)
}

func TestBuildPagesChunking(t *testing.T) {
	avatars := NewAvatarRegistry()
	sections := BuildPages(testMessages(25), 10, &HTMLRenderer{}, avatars)

	require.Len(t, sections, 3)
	for i, s := range sections {
		require.Equal(t, i+1, s.Page)
		require.Equal(t, 3, s.TotalPages)
		require.Equal(t, 10, s.PageSize)
		require.Equal(t, 25, s.TotalCount)
	}
	require.True(t, sections[0].IncludeTitle)
	require.False(t, sections[0].IncludeEnd)
	require.False(t, sections[1].IncludeTitle)
	require.False(t, sections[1].IncludeEnd)
	require.False(t, sections[2].IncludeTitle)
	require.True(t, sections[2].IncludeEnd)

	require.Equal(t, 10, strings.Count(sections[0].Fragment, "<p "))
	require.Equal(t, 5, strings.Count(sections[2].Fragment, "<p "))
}

func TestBuildPagesEmpty(t *testing.T) {
	require.Nil(t, BuildPages(nil, 10, &HTMLRenderer{}, NewAvatarRegistry()))
}

func TestConcatHTML(t *testing.T) {
	avatars := NewAvatarRegistry()
	sections := BuildPages(testMessages(25), 10, &HTMLRenderer{}, avatars)
	doc := ConcatHTML(sections, avatars, ConcatOptions{
		TitleHTML: `<div id="title-banner"></div>`,
		EndHTML:   `<div id="end-banner"></div>`,
	})

	require.Equal(t, 2, strings.Count(doc, PageBreak))
	require.Equal(t, 1, strings.Count(doc, "title-banner"))
	require.Equal(t, 1, strings.Count(doc, "end-banner"))
	require.Contains(t, doc, "第 1 / 3 页（每页 10 条，共 25 条）")
	require.True(t, strings.Index(doc, "title-banner") < strings.Index(doc, "end-banner"))
	require.True(t, strings.HasPrefix(doc, "<style data-avatar-registry>"))
}

func TestConcatHTMLEmptyYieldsPlaceholder(t *testing.T) {
	require.Equal(t, EmptyPlaceholder, ConcatHTML(nil, NewAvatarRegistry(), ConcatOptions{}))
}

func TestAvatarRegistryDeduplicates(t *testing.T) {
	avatars := NewAvatarRegistry()

	a := avatars.Register("https://example.com/a.png")
	b := avatars.Register("https://example.com/b.png")
	again := avatars.Register("https://example.com/a.png")

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.Equal(t, a, again)
	require.Equal(t, 2, avatars.Len())
	require.Equal(t, "", avatars.Register(""))

	style := avatars.StyleBlock()
	require.Equal(t, 1, strings.Count(style, "a.png"))
	require.Equal(t, 1, strings.Count(style, "b.png"))
}

func TestAvatarRegistryStyleIsSharedAcrossPages(t *testing.T) {
	avatars := NewAvatarRegistry()
	BuildPages(testMessages(25), 10, &HTMLRenderer{}, avatars)

	// Two distinct icon URLs across 25 messages yield two rules only.
	require.Equal(t, 2, avatars.Len())
}

func TestHTMLRendererEscapesText(t *testing.T) {
	messages := []model.Message{{
		Nickname: "Alice<script>",
		Color:    "#ffffff",
		Text:     "a < b\nnext",
	}}
	out := (&HTMLRenderer{}).Render(messages, NewAvatarRegistry())
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "a &lt; b<br>next")
}

func TestHTMLRendererResolvesIcons(t *testing.T) {
	resolved := map[string]string{"https://example.com/a.png": "data:image/png;base64,AAAA"}
	r := &HTMLRenderer{Resolve: func(u string) string { return resolved[u] }}
	avatars := NewAvatarRegistry()

	r.Render([]model.Message{{Nickname: "Alice", Color: "#fff", IconURL: "https://example.com/a.png"}}, avatars)
	require.Contains(t, avatars.StyleBlock(), "data:image/png;base64,AAAA")
}

func TestImageSection(t *testing.T) {
	require.Equal(t, "", ImageSection(nil))
	require.Equal(t, "", ImageSection([]string{""}))

	out := ImageSection([]string{"https://example.com/a.png", "", "https://example.com/b.png"})
	require.Equal(t, 2, strings.Count(out, "<img "))
}

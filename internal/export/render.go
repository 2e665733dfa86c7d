package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

// ResolveFunc maps an image source URL to its display source. A nil
// ResolveFunc passes URLs through unchanged.
type ResolveFunc func(url string) string

// Renderer turns a chunk of messages into an HTML fragment.
type Renderer interface {
	Render(messages []model.Message, avatars *AvatarRegistry) string
}

// HTMLRenderer is the built-in message renderer. Icons go through Resolve and
// the avatar registry; text is HTML-escaped with newlines kept as breaks.
type HTMLRenderer struct {
	Resolve ResolveFunc
}

func (r *HTMLRenderer) resolve(url string) string {
	if r.Resolve == nil {
		return url
	}
	return r.Resolve(url)
}

func (r *HTMLRenderer) avatarTag(src, name string, avatars *AvatarRegistry) string {
	classes := []string{"avatar-img"}
	if class := avatars.Register(src); class != "" {
		classes = append(classes, class)
	} else {
		classes = append(classes, "avatar-placeholder")
	}
	return fmt.Sprintf(`<div class="%s" aria-label="%s"></div>`,
		strings.Join(classes, " "), html.EscapeString(name))
}

func escapeText(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// Render produces one <p> per message, matching the structure downstream
// log-viewer styles expect.
func (r *HTMLRenderer) Render(messages []model.Message, avatars *AvatarRegistry) string {
	var b strings.Builder
	for _, m := range messages {
		body := escapeText(m.Text)
		if m.DiceResult != "" {
			body += fmt.Sprintf(` <span class="dice-result">%s</span>`, escapeText(m.DiceResult))
		}
		b.WriteString(fmt.Sprintf(
			`<p data-channel="%s">%s<span style="color:%s;"> %s</span><span>%s</span></p>`,
			html.EscapeString(m.ChannelName),
			r.avatarTag(r.resolve(m.IconURL), m.Nickname, avatars),
			html.EscapeString(m.Color),
			html.EscapeString(m.Nickname),
			body,
		))
		b.WriteString("\n")
	}
	return b.String()
}

var _ Renderer = (*HTMLRenderer)(nil)

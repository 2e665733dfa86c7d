// Package export turns stored messages into downloadable documents: a JSON
// interchange format and a self-contained paginated HTML log.
package export

import (
	"fmt"
	"strings"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

// EmptyPlaceholder is emitted when an export has no messages.
const EmptyPlaceholder = "暂无聊天记录。"

// PageBreak separates page sections in the concatenated document.
const PageBreak = `<div class="page-break"></div>`

// Section is one rendered export page.
type Section struct {
	// Page is 1-based.
	Page         int
	TotalPages   int
	PageSize     int
	TotalCount   int
	Fragment     string
	IncludeTitle bool
	IncludeEnd   bool
}

// BuildPages chunks messages into fixed-size pages and renders each chunk.
// Only the first section carries the title banner and only the last carries
// the end banner. All sections share the given avatar registry.
func BuildPages(messages []model.Message, pageSize int, renderer Renderer, avatars *AvatarRegistry) []Section {
	if len(messages) == 0 {
		return nil
	}
	if pageSize < 1 {
		pageSize = len(messages)
	}
	totalPages := (len(messages) + pageSize - 1) / pageSize

	sections := make([]Section, 0, totalPages)
	for page := 0; page < totalPages; page++ {
		start := page * pageSize
		end := start + pageSize
		if end > len(messages) {
			end = len(messages)
		}
		sections = append(sections, Section{
			Page:         page + 1,
			TotalPages:   totalPages,
			PageSize:     pageSize,
			TotalCount:   len(messages),
			Fragment:     renderer.Render(messages[start:end], avatars),
			IncludeTitle: page == 0,
			IncludeEnd:   page == totalPages-1,
		})
	}
	return sections
}

// ConcatOptions carries the optional banners placed around the log body.
type ConcatOptions struct {
	TitleHTML string
	EndHTML   string
}

// ConcatHTML joins sections into one document with page-break markers between
// them and the avatar style block up front. An empty section list yields the
// placeholder text.
func ConcatHTML(sections []Section, avatars *AvatarRegistry, opts ConcatOptions) string {
	if len(sections) == 0 {
		return EmptyPlaceholder
	}
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		var b strings.Builder
		fmt.Fprintf(&b, `<section class="export-page" data-page="%d">`, s.Page)
		fmt.Fprintf(&b, `<div class="page-meta">第 %d / %d 页（每页 %d 条，共 %d 条）</div>`,
			s.Page, s.TotalPages, s.PageSize, s.TotalCount)
		if s.IncludeTitle && opts.TitleHTML != "" {
			b.WriteString(opts.TitleHTML)
		}
		b.WriteString(s.Fragment)
		if s.IncludeEnd && opts.EndHTML != "" {
			b.WriteString(opts.EndHTML)
		}
		b.WriteString(`</section>`)
		parts = append(parts, b.String())
	}

	doc := strings.Join(parts, PageBreak)
	if style := avatars.StyleBlock(); style != "" {
		doc = style + doc
	}
	return doc
}

// ImageSection wraps resolved banner image sources into a centered block, or
// "" when no source survives resolution.
func ImageSection(sources []string) string {
	var imgs []string
	for _, src := range sources {
		if src == "" {
			continue
		}
		imgs = append(imgs, fmt.Sprintf(`<img src="%s" style="max-width:100%%;">`, src))
	}
	if len(imgs) == 0 {
		return ""
	}
	return `<div class="image-section" style="text-align:center;">` + strings.Join(imgs, "") + `</div>`
}

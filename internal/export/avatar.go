package export

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AvatarRegistry deduplicates avatar image sources into CSS classes so a
// repeated (possibly large data URI) source is emitted once per document
// instead of once per message.
type AvatarRegistry struct {
	prefix  string
	classes map[string]string
	rules   []string
}

// NewAvatarRegistry creates a registry with a unique class prefix, so styles
// from separately exported documents never collide when concatenated.
func NewAvatarRegistry() *AvatarRegistry {
	return &AvatarRegistry{
		prefix:  "avatar-" + uuid.NewString()[:8],
		classes: make(map[string]string),
	}
}

func escapeCSSURL(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// Register returns the CSS class for the given image source, creating one
// rule per distinct source. Empty sources return the empty class.
func (r *AvatarRegistry) Register(src string) string {
	if src == "" {
		return ""
	}
	if class, ok := r.classes[src]; ok {
		return class
	}
	class := fmt.Sprintf("%s-%d", r.prefix, len(r.classes)+1)
	r.classes[src] = class
	r.rules = append(r.rules,
		fmt.Sprintf(".%s{background-image:url('%s');background-size:cover;background-position:center;background-repeat:no-repeat;}",
			class, escapeCSSURL(src)))
	return class
}

// StyleBlock returns the registry's style element, or "" when no avatars were
// registered.
func (r *AvatarRegistry) StyleBlock() string {
	if len(r.rules) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<style data-avatar-registry>`)
	b.WriteString(".avatar-img{width:40px;height:40px;border-radius:5px;background-color:#2c2c2c;display:inline-block;}")
	b.WriteString(".avatar-placeholder{background:#2c2c2c;}")
	for _, rule := range r.rules {
		b.WriteString("\n")
		b.WriteString(rule)
	}
	b.WriteString(`</style>`)
	return b.String()
}

// Len returns the number of distinct registered sources.
func (r *AvatarRegistry) Len() int { return len(r.classes) }

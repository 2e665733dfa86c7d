package serve

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsPolicy is the browser cross-origin policy for the HTTP surface. The
// export and import routes are called from web front ends on other origins,
// so the policy echoes the request origin back when it is allowed.
type corsPolicy struct {
	allowAll bool
	origins  []string
}

// newCORSPolicy parses a comma-separated origin allowlist. An empty list, or
// a lone "*", allows every origin.
func newCORSPolicy(originsCSV string) corsPolicy {
	var p corsPolicy
	for _, part := range strings.Split(originsCSV, ",") {
		if v := strings.TrimSpace(part); v != "" {
			p.origins = append(p.origins, v)
		}
	}
	if len(p.origins) == 0 || (len(p.origins) == 1 && p.origins[0] == "*") {
		p.allowAll = true
		p.origins = nil
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAll {
		return true
	}
	for _, o := range p.origins {
		if o == origin {
			return true
		}
	}
	return false
}

func corsMiddleware(originsCSV string) gin.HandlerFunc {
	policy := newCORSPolicy(originsCSV)
	return func(c *gin.Context) {
		if origin := strings.TrimSpace(c.GetHeader("Origin")); policy.allows(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

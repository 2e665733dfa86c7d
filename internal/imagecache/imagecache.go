// Package imagecache resolves remote image URLs into self-contained data URIs
// so exported documents render without network access.
package imagecache

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/cache"
	"github.com/kagangtuya-star/cclog-plus/internal/security"
)

// Resolver fetches images once and records their terminal state in the cache.
type Resolver struct {
	cache       cache.ImageCache
	client      *http.Client
	concurrency int
	maxAttempts int
}

// NewResolver builds a Resolver over the given backend.
func NewResolver(c cache.ImageCache, fetchTimeout time.Duration, concurrency, maxAttempts int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Resolver{
		cache:       c,
		client:      &http.Client{Timeout: fetchTimeout},
		concurrency: concurrency,
		maxAttempts: maxAttempts,
	}
}

// CollectOptions selects which extra image URLs are gathered beyond message icons.
type CollectOptions struct {
	TitleImages []string
	EndImages   []string
	CharHeads   []string
}

// CollectImageURLs gathers the distinct non-data image URLs referenced by the
// given messages and options, in first-seen order.
func CollectImageURLs(messages []model.Message, opts CollectOptions) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u == "" || strings.HasPrefix(u, "data:") || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	for _, u := range opts.TitleImages {
		add(u)
	}
	for _, m := range messages {
		add(m.IconURL)
	}
	for _, u := range opts.CharHeads {
		add(u)
	}
	for _, u := range opts.EndImages {
		add(u)
	}
	return urls
}

// EnsureCached fetches every URL that has no terminal cache entry yet.
// Fetch failures never fail the batch; they are recorded per URL.
func (r *Resolver) EnsureCached(ctx context.Context, urls []string) error {
	var pending []string
	seen := make(map[string]bool)
	for _, u := range urls {
		if u == "" || strings.HasPrefix(u, "data:") || seen[u] {
			continue
		}
		seen[u] = true
		entry, err := r.cache.Get(ctx, u)
		if err != nil {
			return err
		}
		if entry != nil && entry.Terminal(r.maxAttempts) {
			if security.ImageCacheHitsTotal != nil {
				security.ImageCacheHitsTotal.Inc()
			}
			continue
		}
		if security.ImageCacheMissesTotal != nil {
			security.ImageCacheMissesTotal.Inc()
		}
		pending = append(pending, u)
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, u := range pending {
		u := u
		g.Go(func() error {
			entry := r.fetch(gctx, u)
			return r.cache.Set(gctx, u, entry)
		})
	}
	return g.Wait()
}

// fetch performs one fetch and classifies the outcome. A 404 becomes a
// permanent absent sentinel; any other failure leaves the URL as a retryable
// passthrough until the attempt budget runs out.
func (r *Resolver) fetch(ctx context.Context, url string) model.ImageEntry {
	attempts := 1
	if prev, err := r.cache.Get(ctx, url); err == nil && prev != nil {
		attempts = prev.Attempts + 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ImageEntry{Status: model.ImageStatusFallback, Value: url, Attempts: attempts}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.Debug("image fetch failed", "url", url, "error", err)
		return model.ImageEntry{Status: model.ImageStatusFallback, Value: url, Attempts: attempts}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ImageEntry{Status: model.ImageStatusAbsent, Value: "", Attempts: attempts}
	}
	if resp.StatusCode != http.StatusOK {
		log.Debug("image fetch failed", "url", url, "status", resp.StatusCode)
		return model.ImageEntry{Status: model.ImageStatusFallback, Value: url, Attempts: attempts}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ImageEntry{Status: model.ImageStatusFallback, Value: url, Attempts: attempts}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(body))
	return model.ImageEntry{Status: model.ImageStatusEmbedded, Value: dataURI, Attempts: attempts}
}

// CachedCount reports how many entries the backend holds, or -1 when the
// backend cannot count cheaply.
func (r *Resolver) CachedCount(ctx context.Context) (int, error) {
	return r.cache.Len(ctx)
}

// Resolve maps a source URL to its display source. Data URIs pass through
// unchanged; unknown URLs pass through as themselves.
func (r *Resolver) Resolve(ctx context.Context, url string) string {
	if url == "" || strings.HasPrefix(url, "data:") {
		return url
	}
	entry, err := r.cache.Get(ctx, url)
	if err != nil || entry == nil {
		return url
	}
	return entry.Resolved()
}

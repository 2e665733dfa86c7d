// Package query filters stored messages by time range, channel, role, and
// keywords.
package query

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

// Engine evaluates filters against the store.
type Engine struct {
	store store.LogStore
}

// NewEngine builds an Engine over the given store.
func NewEngine(s store.LogStore) *Engine {
	return &Engine{store: s}
}

type matcher func(candidate string) bool

// buildMatchers compiles the filter's keywords. All returned matchers must
// match for a message to pass. Invalid regex keywords are dropped rather than
// failing the query.
func buildMatchers(spec model.FilterSpec) []matcher {
	var matchers []matcher
	for _, kw := range spec.Keywords {
		kw := strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if spec.KeywordMode == model.KeywordModeRegex {
			flags := "(?i)"
			if spec.CaseSensitive {
				flags = ""
			}
			re, err := regexp.Compile(flags + kw)
			if err != nil {
				log.Debug("dropping invalid regex keyword", "keyword", kw, "error", err)
				continue
			}
			matchers = append(matchers, re.MatchString)
			continue
		}
		if spec.CaseSensitive {
			matchers = append(matchers, func(c string) bool { return strings.Contains(c, kw) })
		} else {
			lower := strings.ToLower(kw)
			matchers = append(matchers, func(c string) bool {
				return strings.Contains(strings.ToLower(c), lower)
			})
		}
	}
	return matchers
}

func memberOf(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// candidate is the text a keyword matcher sees: the message body plus the
// dice result, so searching for a roll total works.
func candidate(m model.Message) string {
	if m.DiceResult == "" {
		return m.Text
	}
	return m.Text + " " + m.DiceResult
}

// Query returns the room's messages matching the filter, sorted ascending by
// timestamp.
func (e *Engine) Query(ctx context.Context, roomID string, spec model.FilterSpec) ([]model.Message, error) {
	messages, err := e.store.MessagesInRange(ctx, roomID, spec.Start, spec.End)
	if err != nil {
		return nil, err
	}

	channels := memberOf(spec.Channels)
	roles := memberOf(spec.Roles)
	matchers := buildMatchers(spec)

	filtered := make([]model.Message, 0, len(messages))
outer:
	for _, m := range messages {
		if channels != nil && !channels[m.ChannelID] {
			continue
		}
		if roles != nil && !roles[m.Nickname] {
			continue
		}
		for _, match := range matchers {
			if !match(candidate(m)) {
				continue outer
			}
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

// LiveQuery re-runs a filter as it changes and discards results from
// superseded runs, so a slow old query can never overwrite a newer one.
type LiveQuery struct {
	engine *Engine
	roomID string

	generation atomic.Int64

	mu      sync.Mutex
	results []model.Message
}

// NewLiveQuery builds a LiveQuery for one room.
func NewLiveQuery(engine *Engine, roomID string) *LiveQuery {
	return &LiveQuery{engine: engine, roomID: roomID}
}

// Refresh runs the filter and installs the results unless a newer Refresh has
// started in the meantime.
func (lq *LiveQuery) Refresh(ctx context.Context, spec model.FilterSpec) error {
	gen := lq.generation.Add(1)
	results, err := lq.engine.Query(ctx, lq.roomID, spec)
	if err != nil {
		return err
	}
	lq.mu.Lock()
	defer lq.mu.Unlock()
	if lq.generation.Load() != gen {
		return nil
	}
	lq.results = results
	return nil
}

// Results returns the most recently installed result set.
func (lq *LiveQuery) Results() []model.Message {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return lq.results
}

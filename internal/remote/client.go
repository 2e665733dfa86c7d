// Package remote talks to the upstream document API that hosts room chat logs.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kagangtuya-star/cclog-plus/internal/normalize"
)

// DocumentPage is one page of the remote listing.
type DocumentPage struct {
	Documents     []normalize.Document `json:"documents"`
	NextPageToken string               `json:"nextPageToken"`
}

// Client fetches paginated message documents for a room.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given API base URL
// (".../documents/rooms", no trailing slash required).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListMessages requests one page of message documents. pageToken is the
// continuation token from the previous page, empty for the first page.
func (c *Client) ListMessages(ctx context.Context, roomID string, pageSize int, pageToken string) (*DocumentPage, error) {
	u := fmt.Sprintf("%s/%s/messages", c.baseURL, url.PathEscape(roomID))
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list messages for room %s: %w", roomID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list messages for room %s: unexpected status %d", roomID, resp.StatusCode)
	}

	var page DocumentPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("list messages for room %s: decode: %w", roomID, err)
	}
	return &page, nil
}

var roomURLPrefix = regexp.MustCompile(`(?i)^https?://ccfolia\.com/rooms/`)

// NormalizeRoomID accepts either a bare room id or a full room URL and
// returns the bare id with any query/fragment stripped.
func NormalizeRoomID(input string) string {
	id := strings.TrimSpace(input)
	if id == "" {
		return ""
	}
	id = roomURLPrefix.ReplaceAllString(id, "")
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return id
}

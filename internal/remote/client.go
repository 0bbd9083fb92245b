// ABOUTME: Shared HTTP/JSON client for the News service API
// ABOUTME: Session and basic transports differ only in request decoration and re-login behavior

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// client implements API against the News service HTTP endpoints. The
// decorate hook adds per-request authentication; the reauth hook, when set,
// re-establishes an app session once after an authentication rejection.
type client struct {
	baseURL  string
	hc       *http.Client
	decorate func(*http.Request)
	reauth   func(ctx context.Context) error
}

type feedJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Link  string `json:"link"`
}

type entryJSON struct {
	ID            string `json:"id"`
	FeedID        string `json:"feedId"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PubDate       int64  `json:"pubDate"`
	Summary       string `json:"summary"`
	EnclosureLink string `json:"enclosureLink"`
	EnclosureMime string `json:"enclosureMime"`
	Unread        bool   `json:"unread"`
	Starred       bool   `json:"starred"`
}

func (c *client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

// do performs one JSON request. Errors come back classified: connection
// failures and 5xx as transient, rejected credentials as auth (after one
// re-login attempt for session transports), undecodable payloads as parse.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.doOnce(ctx, method, path, query, body, out, true)
}

func (c *client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any, allowReauth bool) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	u := c.endpoint(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.decorate != nil {
		c.decorate(req)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if allowReauth && c.reauth != nil {
			if err := c.reauth(ctx); err != nil {
				return err
			}
			return c.doOnce(ctx, method, path, query, body, out, false)
		}
		return Auth(fmt.Errorf("server rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return Transient(fmt.Errorf("server error (status %d)", resp.StatusCode))
	case resp.StatusCode >= 400:
		return Parse(fmt.Errorf("request rejected (status %d)", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Parse(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// ListFeeds returns all remote feed subscriptions.
func (c *client) ListFeeds(ctx context.Context) ([]FeedDescriptor, error) {
	var payload struct {
		Feeds []feedJSON `json:"feeds"`
	}
	if err := c.do(ctx, http.MethodGet, "/feeds", nil, nil, &payload); err != nil {
		return nil, err
	}

	feeds := make([]FeedDescriptor, 0, len(payload.Feeds))
	for _, f := range payload.Feeds {
		feeds = append(feeds, FeedDescriptor{
			ID:            f.ID,
			Title:         f.Title,
			SelfLink:      f.URL,
			AlternateLink: f.Link,
		})
	}
	return feeds, nil
}

// ListEntries returns entries modified since the watermark, paged.
func (c *client) ListEntries(ctx context.Context, since int64, feedID string, offset, limit int) ([]EntryDescriptor, error) {
	query := url.Values{}
	query.Set("lastModified", strconv.FormatInt(since, 10))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	if feedID != "" {
		query.Set("feedId", feedID)
	}

	var payload struct {
		Items []entryJSON `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/items", query, nil, &payload); err != nil {
		return nil, err
	}

	entries := make([]EntryDescriptor, 0, len(payload.Items))
	for _, item := range payload.Items {
		e := EntryDescriptor{
			ID:            item.ID,
			FeedID:        item.FeedID,
			Title:         item.Title,
			AlternateLink: item.URL,
			Summary:       item.Summary,
			EnclosureLink: item.EnclosureLink,
			EnclosureMime: item.EnclosureMime,
			Read:          !item.Unread,
			Bookmarked:    item.Starred,
		}
		if item.PubDate > 0 {
			t := time.Unix(item.PubDate, 0).UTC()
			e.Published = &t
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PushFlags uploads flag edits, one idempotent PUT per non-empty group.
func (c *client) PushFlags(ctx context.Context, batch FlagBatch) error {
	groups := []struct {
		path string
		ids  []string
	}{
		{"/items/read/multiple", batch.ReadIDs},
		{"/items/unread/multiple", batch.UnreadIDs},
		{"/items/bookmark/multiple", batch.BookmarkedIDs},
		{"/items/unbookmark/multiple", batch.UnbookmarkedIDs},
	}

	for _, g := range groups {
		if len(g.ids) == 0 {
			continue
		}
		body := map[string][]string{"itemIds": g.ids}
		if err := c.do(ctx, http.MethodPut, g.path, nil, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// AddFeed subscribes to a feed URL.
func (c *client) AddFeed(ctx context.Context, feedURL string) (*FeedDescriptor, error) {
	var payload struct {
		Feeds []feedJSON `json:"feeds"`
	}
	body := map[string]string{"url": feedURL}
	if err := c.do(ctx, http.MethodPost, "/feeds", nil, body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Feeds) == 0 {
		return nil, Parse(fmt.Errorf("server returned no feed for %s", feedURL))
	}

	f := payload.Feeds[0]
	return &FeedDescriptor{
		ID:            f.ID,
		Title:         f.Title,
		SelfLink:      f.URL,
		AlternateLink: f.Link,
	}, nil
}

// RenameFeed sets the remote title of a feed.
func (c *client) RenameFeed(ctx context.Context, id, title string) error {
	body := map[string]string{"feedTitle": title}
	return c.do(ctx, http.MethodPut, "/feeds/"+url.PathEscape(id)+"/rename", nil, body, nil)
}

// DeleteFeed removes a feed subscription.
func (c *client) DeleteFeed(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/feeds/"+url.PathEscape(id), nil, nil, nil)
}

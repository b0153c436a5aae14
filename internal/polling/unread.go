package polling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"realtime-service/internal/models"
)

// UnreadClient fetches unread counts from the notifications endpoint.
type UnreadClient struct {
	URL   string
	Token string
	HTTP  *http.Client
}

func NewUnreadClient(url, token string) *UnreadClient {
	return &UnreadClient{
		URL:   url,
		Token: token,
		HTTP:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *UnreadClient) Fetch(ctx context.Context) (*models.UnreadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch unread counts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch unread counts: unexpected status %d", resp.StatusCode)
	}

	var out models.UnreadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode unread counts: %w", err)
	}
	return &out, nil
}

// UnreadChange is a per-channel count that differs between two polls.
type UnreadChange struct {
	CommunityID string
	ChannelID   string
	Previous    int64
	Current     int64
}

// DiffUnread compares channel counts of two polls. Channels missing from
// next are reported with Current 0. A nil prev reports every non-zero count.
func DiffUnread(prev, next *models.UnreadResponse) []UnreadChange {
	type key struct{ community, channel string }

	before := make(map[key]int64)
	if prev != nil {
		for _, community := range prev.Communities {
			for _, ch := range community.Channels {
				before[key{community.ID, ch.ID}] = ch.UnreadCount
			}
		}
	}

	var changes []UnreadChange
	if next != nil {
		for _, community := range next.Communities {
			for _, ch := range community.Channels {
				k := key{community.ID, ch.ID}
				old := before[k]
				delete(before, k)
				if old == ch.UnreadCount {
					continue
				}
				changes = append(changes, UnreadChange{
					CommunityID: community.ID,
					ChannelID:   ch.ID,
					Previous:    old,
					Current:     ch.UnreadCount,
				})
			}
		}
	}

	// Preserve the order channels had in prev for removals.
	if prev != nil {
		for _, community := range prev.Communities {
			for _, ch := range community.Channels {
				k := key{community.ID, ch.ID}
				if old, ok := before[k]; ok && old != 0 {
					changes = append(changes, UnreadChange{
						CommunityID: community.ID,
						ChannelID:   ch.ID,
						Previous:    old,
					})
				}
			}
		}
	}
	return changes
}

// TotalUnread sums channel counts, ignoring any server-side totals.
func TotalUnread(resp *models.UnreadResponse) int64 {
	if resp == nil {
		return 0
	}
	var total int64
	for _, community := range resp.Communities {
		for _, ch := range community.Channels {
			total += ch.UnreadCount
		}
	}
	return total
}

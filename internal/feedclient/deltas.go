package feedclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/catalog-feed/internal/model"
)

// DeltasPath is the feed endpoint.
const DeltasPath = "/v1/products/deltas"

// DeltaQuery selects one feed page. A nil MaxID lets the server snapshot
// its current tail.
type DeltaQuery struct {
	Page     int
	PageSize int
	StoreIDs []int64
	SinceID  int64
	MaxID    *int64
}

func (q DeltaQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if len(q.StoreIDs) > 0 {
		ids := make([]string, len(q.StoreIDs))
		for i, id := range q.StoreIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("store_id", strings.Join(ids, ","))
	}
	v.Set("since_id", strconv.FormatInt(q.SinceID, 10))
	if q.MaxID != nil {
		v.Set("max_id", strconv.FormatInt(*q.MaxID, 10))
	}
	return v
}

// AppendAck is the response to PostItemChanges.
type AppendAck struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Accepted  int    `json:"accepted"`
	Pending   int    `json:"pending"`
}

// GetProductDeltas fetches one feed page.
func (c *Client) GetProductDeltas(ctx context.Context, q DeltaQuery) (*model.FeedPage, error) {
	var page model.FeedPage
	if err := c.call(ctx, http.MethodGet, DeltasPath, q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PostItemChanges records item changes. Retrying is safe because repeated
// changes to one item collapse into a single delivery.
func (c *Client) PostItemChanges(ctx context.Context, itemIDs []int64) (*AppendAck, error) {
	var ack AppendAck
	body := map[string][]int64{"item_ids": itemIDs}
	if err := c.call(ctx, http.MethodPost, DeltasPath, nil, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Package newsapi queries the Arc Games news endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stobot/lib/models"
)

const DefaultEndpoint = "https://api.arcgames.com/v1.0/games/sto/news"

// DefaultFields are the optional response fields the bot needs on top of the
// id, title and summary that are always returned.
var DefaultFields = []string{"images.img_microsite_thumbnail", "platforms", "updated"}

type Query struct {
	Tag      string
	Limit    uint32
	Offset   uint32
	Platform string
	Fields   []string
}

type Client struct {
	endpoint  string
	transport http.RoundTripper
}

func New(endpoint string, transport http.RoundTripper) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, transport: transport}
}

func (c *Client) builder(q Query) *requests.Builder {
	rb := requests.URL(c.endpoint).Transport(c.transport)
	if q.Tag != "" {
		rb.Param("tag", q.Tag)
	}
	if q.Limit > 0 {
		rb.Param("limit", strconv.FormatUint(uint64(q.Limit), 10))
	}
	rb.Param("offset", strconv.FormatUint(uint64(q.Offset), 10))

	fields := q.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	rb.Param("field[]", fields...)

	if q.Platform != "" {
		rb.Param("platform", q.Platform)
	}
	return rb
}

// BuildURL renders the request URL for q.
func (c *Client) BuildURL(q Query) (string, error) {
	u, err := c.builder(q).URL()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *Client) Fetch(ctx context.Context, q Query) (*models.NewsCollection, error) {
	var body string
	err := c.builder(q).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: news endpoint: %w", models.ErrFetch, err)
	}

	var coll models.NewsCollection
	if err := json.Unmarshal([]byte(body), &coll); err != nil {
		return nil, fmt.Errorf("%w: news response: %w", models.ErrParse, err)
	}
	return &coll, nil
}

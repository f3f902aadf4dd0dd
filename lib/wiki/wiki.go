// Package wiki builds STOWiki search cards with a short article preview.
package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stobot/lib/models"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://stowiki.net"

	CardColor   = 0x00ADEF
	cardFooter  = "Results from STOWiki.net"
	cardTagline = "STOWiki.net is the community Star Trek Online wiki."

	paragraphXPath = `//*[@id='mw-content-text']/div[contains(concat(' ', normalize-space(@class), ' '), ' mw-parser-output ')]/p`
)

type Client struct {
	baseURL   string
	transport http.RoundTripper
	log       *zap.Logger
}

func New(baseURL string, transport http.RoundTripper, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		log:       log,
	}
}

func (c *Client) SearchURL(query string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return fmt.Sprintf("%s/wiki/Special:Search?search=%s&go=Go", c.baseURL, escaped)
}

func (c *Client) ArticleURL(query string) string {
	return fmt.Sprintf("%s/wiki/%s", c.baseURL, url.PathEscape(strings.ReplaceAll(query, " ", "_")))
}

// Lookup builds the card for query. A missing or unreachable article only
// drops the preview.
func (c *Client) Lookup(ctx context.Context, query string) (models.WikiCard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.WikiCard{}, fmt.Errorf("%w: empty wiki query", models.ErrInvalidInput)
	}

	searchURL := c.SearchURL(query)
	articleURL := c.ArticleURL(query)

	desc := fmt.Sprintf("[View search results](%s) | [Try direct article link](%s)", searchURL, articleURL)
	if preview := c.Preview(ctx, articleURL); preview != "" {
		desc += "\n\n" + preview
	}
	desc += "\n\n" + cardTagline

	return models.WikiCard{
		Title:       "STOWiki Search: " + query,
		Description: desc,
		Footer:      cardFooter,
		Color:       CardColor,
	}, nil
}

// Preview returns the first paragraph of the article at articleURL, falling
// back to a readability excerpt. Errors are logged and yield "".
func (c *Client) Preview(ctx context.Context, articleURL string) string {
	var body string
	err := requests.URL(articleURL).
		Transport(c.transport).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		c.log.Sugar().Infow("No wiki preview", "url", articleURL, "err", err)
		return ""
	}

	doc, err := htmlquery.Parse(strings.NewReader(body))
	if err != nil {
		c.log.Sugar().Infow("Unparseable wiki page", "url", articleURL, "err", err)
		return ""
	}
	if text := FirstText(doc, paragraphXPath); text != "" {
		return text
	}

	pageURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return compactWhitespace(article.Excerpt)
}

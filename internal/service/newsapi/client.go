package newsapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketRegime/internal/domain/models"
	domainsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/service/provider"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

// ErrMissingAPIKey is returned when no NewsAPI key is configured.
var ErrMissingAPIKey = errors.New("newsapi: api key is not configured")

// companyNames maps stock codes to the query that finds their coverage.
// Unmapped codes are searched by the code itself.
var companyNames = map[string]string{
	"TCS":       "Tata Consultancy Services",
	"INFY":      "Infosys",
	"RELIANCE":  "Reliance Industries",
	"HDFCBANK":  "HDFC Bank",
	"ICICIBANK": "ICICI Bank",
	"SBIN":      "State Bank of India",
	"ITC":       "ITC Limited",
	"LT":        "Larsen & Toubro",
	"AXISBANK":  "Axis Bank",
	"MARUTI":    "Maruti Suzuki",
}

// Query returns the search query for a symbol.
func Query(symbol string) string {
	code := util.StockCode(symbol)
	if name, ok := companyNames[code]; ok {
		return name
	}
	return code
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Client queries the NewsAPI /v2/everything endpoint.
type Client struct {
	base     *provider.HTTPServiceBase
	apiKey   string
	pageSize int
	log      *applogger.Logger
}

var _ domainsvc.NewsFetcher = (*Client)(nil)

func NewClient(base *provider.HTTPServiceBase, apiKey string, pageSize int, l *applogger.Logger) *Client {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{base: base, apiKey: apiKey, pageSize: pageSize, log: l}
}

// FetchNews returns unscored headlines for symbol published since from, newest first.
// An empty slice means the provider had nothing for the window.
func (c *Client) FetchNews(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := map[string][]string{
		"q":        {Query(symbol)},
		"from":     {from.UTC().Format(util.DateLayout)},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(c.pageSize)},
		"apiKey":   {c.apiKey},
	}
	if !to.IsZero() {
		q["to"] = []string{to.UTC().Format(time.RFC3339)}
	}

	var resp everythingResponse
	if err := c.base.GetJSON(ctx, "/v2/everything", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", resp.Code, resp.Message)
	}

	code := util.StockCode(symbol)
	items := make([]models.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		published, ok := util.ParseTime(a.PublishedAt)
		if !ok {
			if c.log != nil {
				c.log.Debug("newsapi article without date", applogger.Symbol(symbol), applogger.String("url", a.URL))
			}
			continue
		}
		items = append(items, models.NewsItem{
			Date:     published.UTC(),
			Stock:    code,
			Headline: title,
			Source:   a.Source.Name,
			URL:      a.URL,
		})
	}
	return items, nil
}

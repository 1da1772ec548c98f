package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketRegime/internal/domain/models"
	"MarketRegime/internal/domain/repository"
	domainsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/service/provider"
	xhttp "MarketRegime/pkg/http"
	applogger "MarketRegime/pkg/logger"
)

// chartResponse mirrors the subset of /v8/finance/chart we read.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Client fetches daily bars from the Yahoo Finance chart API.
type Client struct {
	base *provider.HTTPServiceBase
	log  *applogger.Logger
}

var _ domainsvc.PriceFetcher = (*Client)(nil)

func NewClient(base *provider.HTTPServiceBase, l *applogger.Logger) *Client {
	return &Client{base: base, log: l}
}

// FetchDaily returns daily OHLCV rows between from and to, oldest first.
// Bars with a missing open, high, low or close are dropped.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRow, error) {
	if to.IsZero() {
		to = time.Now()
	}
	q := map[string][]string{
		"period1":        {strconv.FormatInt(from.Unix(), 10)},
		"period2":        {strconv.FormatInt(to.Unix(), 10)},
		"interval":       {"1d"},
		"events":         {"history"},
		"includePrePost": {"false"},
	}

	var resp chartResponse
	err := c.base.GetJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &resp)
	if err != nil {
		if xhttp.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, repository.ErrNotFound)
		}
		return nil, err
	}
	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, repository.ErrNotFound)
	}

	rows, dropped := toRows(resp.Chart.Result[0])
	if dropped > 0 && c.log != nil {
		c.log.Debug("yahoo bars dropped",
			applogger.Symbol(symbol),
			applogger.Int("dropped", dropped),
		)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, repository.ErrEmptySeries)
	}
	return rows, nil
}

func toRows(r chartResult) ([]models.PriceRow, int) {
	if len(r.Indicators.Quote) == 0 {
		return nil, len(r.Timestamp)
	}
	q := r.Indicators.Quote[0]
	offset := time.Duration(r.Meta.GMTOffset) * time.Second

	rows := make([]models.PriceRow, 0, len(r.Timestamp))
	dropped := 0
	for i, ts := range r.Timestamp {
		o, h, l, cl := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if o == nil || h == nil || l == nil || cl == nil {
			dropped++
			continue
		}
		vol := 0.0
		if v := at(q.Volume, i); v != nil {
			vol = *v
		}
		rows = append(rows, models.PriceRow{
			// shift to exchange local time so the bar lands on its trading day
			Date:   models.Day(time.Unix(ts, 0).Add(offset)),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *cl,
			Volume: vol,
		})
	}
	return rows, dropped
}

func at(xs []*float64, i int) *float64 {
	if i >= len(xs) || xs[i] == nil || math.IsNaN(*xs[i]) {
		return nil
	}
	return xs[i]
}

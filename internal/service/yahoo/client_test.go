package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/repository"
	"MarketRegime/internal/service/provider"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"TCS.NS","gmtoffset":19800},
  "timestamp":[1704167100,1704253500,1704339900],
  "indicators":{"quote":[{
    "open":[3800.0,null,3850.5],
    "high":[3850.0,3900.0,3890.0],
    "low":[3780.0,3810.0,3840.0],
    "close":[3820.0,3880.0,3870.25],
    "volume":[1200000,900000,null]
  }]}
}],"error":null}}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := provider.NewHTTPServiceBase(provider.Options{
		Name: "yahoo", BaseURL: srv.URL, RPS: 100, Burst: 10, RetryAttempts: 1,
	}, nil, nil)
	return NewClient(base, nil)
}

func TestFetchDailyParsesChart(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TCS.NS", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartBody))
	})

	rows, err := c.FetchDaily(context.Background(), "TCS.NS", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 2, "bar with null open is dropped")

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 3820.0, rows[0].Close)
	assert.Equal(t, 1200000.0, rows[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), rows[1].Date)
	assert.Equal(t, 0.0, rows[1].Volume, "null volume reads as zero")
}

func TestFetchDailyNotFound(t *testing.T) {
	t.Run("http 404 maps to not found", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})
		_, err := c.FetchDaily(context.Background(), "NOPE.NS", time.Now().AddDate(0, 0, -5), time.Now())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("empty result maps to not found", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		})
		_, err := c.FetchDaily(context.Background(), "TCS.NS", time.Now().AddDate(0, 0, -5), time.Now())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

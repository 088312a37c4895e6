package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "github.com/Harry166/stro/internal/domain/repository"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Finnhub-Token"))
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if body == "429" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func fixedNow() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func TestGetHistory(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/candle": `{"s":"ok","c":[10,11,12],"v":[100,200,300],"t":[1714521600,1714608000,1714694400]}`,
	})
	defer srv.Close()

	c := New("secret", srv.URL, time.Second, WithClock(fixedNow))
	series, err := c.GetHistory(context.Background(), "aapl", drepo.Period1Mo)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, []float64{10, 11, 12}, series.Closes())
	assert.Equal(t, 300.0, series[2].Volume)
	assert.True(t, series[0].Date.Before(series[1].Date))
}

func TestGetHistoryNoData(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/stock/candle": `{"s":"no_data"}`})
	defer srv.Close()

	series, err := New("secret", srv.URL, time.Second).GetHistory(context.Background(), "ZZZZ", drepo.Period3Mo)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestGetHistoryRateLimited(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/stock/candle": "429"})
	defer srv.Close()

	_, err := New("secret", srv.URL, time.Second).GetHistory(context.Background(), "AAPL", drepo.Period3Mo)
	assert.ErrorIs(t, err, drepo.ErrRateLimited)
}

func TestGetInfo(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/profile2": `{"name":"Apple Inc","ticker":"AAPL","exchange":"NASDAQ","finnhubIndustry":"Technology","marketCapitalization":3000000}`,
		"/quote":          `{"c":190.5,"pc":188}`,
		"/stock/metric":   `{"metric":{"peTTM":29.4}}`,
	})
	defer srv.Close()

	info, err := New("secret", srv.URL, time.Second).GetInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", info.Name())
	assert.Equal(t, 190.5, info.CurrentPrice)
	assert.Equal(t, 29.4, info.PERatio)
	assert.Equal(t, 3e12, info.MarketCap)
}

func TestGetInfoUnknownSymbol(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/profile2": `{}`,
		"/quote":          `{"c":0,"pc":0}`,
		"/stock/metric":   `{"metric":{}}`,
	})
	defer srv.Close()

	_, err := New("secret", srv.URL, time.Second).GetInfo(context.Background(), "NOPE")
	assert.ErrorIs(t, err, drepo.ErrUnknownSymbol)
}

func TestGetInfoQuoteFailureIsBestEffort(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/profile2": `{"name":"Microsoft","ticker":"MSFT"}`,
	})
	defer srv.Close()

	info, err := New("secret", srv.URL, time.Second).GetInfo(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", info.DisplayName)
	assert.Zero(t, info.CurrentPrice)
}

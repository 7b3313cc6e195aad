package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucarosati/folio-backend/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	return client, server
}

func TestFetchQuote(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/VWCE.DE", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {
						"symbol": "VWCE.DE",
						"currency": "EUR",
						"regularMarketPrice": 112.34
					}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	quote, err := client.FetchQuote(context.Background(), "VWCE.DE")
	require.NoError(t, err)

	assert.Equal(t, "VWCE.DE", quote.Symbol)
	assert.Equal(t, "EUR", quote.Currency)
	assert.Equal(t, "112.34", quote.Price.String())
}

func TestFetchQuoteSymbolNotFound(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"chart": {
				"result": null,
				"error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}
			}
		}`))
	}))
	defer server.Close()

	_, err := client.FetchQuote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, domain.IsExternalSource(err))
	assert.Contains(t, err.Error(), "delisted")
}

func TestFetchQuoteServerError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := client.FetchQuote(context.Background(), "VWCE.DE")
	require.Error(t, err)
	assert.True(t, domain.IsExternalSource(err))
	assert.Contains(t, err.Error(), "429")
}

func TestFetchQuoteRejectsZeroPrice(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [{"meta": {"symbol": "X", "currency": "EUR", "regularMarketPrice": 0}}]}}`))
	}))
	defer server.Close()

	_, err := client.FetchQuote(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, domain.IsExternalSource(err))
}

func TestSearch(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "gold", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("quotesCount"))
		w.Write([]byte(`{
			"quotes": [
				{"symbol": "SGLD.L", "longname": "Invesco Physical Gold ETC", "exchange": "LSE", "quoteType": "ETF", "currency": "USD"},
				{"symbol": "", "shortname": "junk row"},
				{"symbol": "GC=F", "shortname": "Gold Futures", "exchange": "CMX", "quoteType": "FUTURE", "currency": "USD"}
			]
		}`))
	}))
	defer server.Close()

	matches, err := client.Search(context.Background(), "gold", 10)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "SGLD.L", matches[0].Symbol)
	assert.Equal(t, "Invesco Physical Gold ETC", matches[0].Name)
	// rows without a symbol are dropped, shortname fills a missing longname
	assert.Equal(t, "Gold Futures", matches[1].Name)
}

func TestSearchTruncatesToLimit(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"quotes": [
				{"symbol": "A", "shortname": "A"},
				{"symbol": "B", "shortname": "B"},
				{"symbol": "C", "shortname": "C"}
			]
		}`))
	}))
	defer server.Close()

	matches, err := client.Search(context.Background(), "abc", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
)

func TestHTTPClassifierTruncatesAndDecodes(t *testing.T) {
	var got classifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"label":"Positive","score":0.9}`))
	}))
	defer srv.Close()

	c := NewHTTPSentimentClassifier(srv.URL, time.Second)
	long := make([]rune, 2000)
	for i := range long {
		long[i] = 'é'
	}
	res, err := c.Classify(context.Background(), string(long))
	require.NoError(t, err)
	assert.Equal(t, models.LabelPositive, res.Label)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Equal(t, MaxClassifierInput, utf8.RuneCountInString(got.Text))
}

func TestHTTPClassifierSingleAttemptOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSentimentClassifier(srv.URL, time.Second).Classify(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestServiceBaseRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"label":"negative","score":0.7}`))
	}))
	defer srv.Close()

	var resp classifyResponse
	err := NewHTTPServiceBase(srv.URL, time.Second, 2).PostJSON(context.Background(), "/classify", classifyRequest{Text: "x"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "negative", resp.Label)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestHTTPClassifierDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTPSentimentClassifier(srv.URL, time.Second).Classify(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestHTTPClassifierRejectsBadConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label":"positive","score":3}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSentimentClassifier(srv.URL, time.Second).Classify(context.Background(), "x")
	assert.Error(t, err)
}

func TestLexiconClassifier(t *testing.T) {
	c := NewLexiconClassifier()
	ctx := context.Background()

	res, err := c.Classify(ctx, "Shares surge after record profits beat estimates")
	require.NoError(t, err)
	assert.Equal(t, models.LabelPositive, res.Label)
	assert.Greater(t, res.Confidence, 0.5)

	res, _ = c.Classify(ctx, "Stock plunges on fraud probe and weak guidance")
	assert.Equal(t, models.LabelNegative, res.Label)
	assert.LessOrEqual(t, res.Confidence, 1.0)

	res, _ = c.Classify(ctx, "Company holds annual meeting")
	assert.Equal(t, models.LabelNeutral, res.Label)
	assert.Equal(t, 0.5, res.Confidence)
}

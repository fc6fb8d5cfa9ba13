package googleai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hirokiuemura2/GDGTeamF1/internal/googleai"
)

func TestAdvice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		require.Contains(t, req, "system_instruction")
		require.Contains(t, string(body), "how do I save")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Track every expense."}]}}]}`)
	}))
	defer server.Close()

	client := googleai.New(server.URL, "key-1", "gemini-2.5-flash")
	answer, err := client.Advice(context.Background(), "how do I save")
	require.NoError(t, err)
	require.Equal(t, "Track every expense.", answer)
}

func TestAdviceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := googleai.New(server.URL, "key-1", "gemini-2.5-flash")
	_, err := client.Advice(context.Background(), "help")

	var statusErr *googleai.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestAdviceTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := googleai.New(server.URL, "key-1", "gemini-2.5-flash")
	_, err := client.Advice(ctx, "help")
	require.ErrorIs(t, err, googleai.ErrTimeout)
}

func TestAdviceEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	client := googleai.New(server.URL, "key-1", "gemini-2.5-flash")
	_, err := client.Advice(context.Background(), "help")
	require.ErrorIs(t, err, googleai.ErrEmptyResponse)
}

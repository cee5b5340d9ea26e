package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"enrichcore/internal/enrich/errs"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(Config{
		EmbedBaseURL: srv.URL,
		EmbedPath:    "/v1/embeddings",
		EmbedModel:   "test-model",
		EmbedTimeout: 2 * time.Second,
		GenBaseURL:   srv.URL,
		GenModel:     "test-model",
		GenTimeout:   2 * time.Second,
	}, srv.Client(), zerolog.Nop())
}

func TestEmbedBatch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResp{}
		for range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{1, 2, 3}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	out, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, []float32{1, 2, 3}, out[0])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embedResp{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{1}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, errs.ErrInvalidResponse)
}

func TestEmbedBatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.ErrorIs(t, err, errs.ErrRuntimeUnavailable)
}

func TestEmbedBatch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(embedResp{})
	}))
	defer srv.Close()

	c := New(Config{
		EmbedBaseURL: srv.URL,
		EmbedPath:    "/v1/embeddings",
		EmbedModel:   "test-model",
		EmbedTimeout: 5 * time.Millisecond,
	}, srv.Client(), zerolog.Nop())

	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.ErrorIs(t, err, errs.ErrRuntimeTimeout)
}

func TestGenerate_JSONMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "json", req.Format)
		_ = json.NewEncoder(w).Encode(generateResp{Response: `{"route":"fallback"}`})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	out, err := c.Generate(context.Background(), "classify this", true)
	require.NoError(t, err)
	require.Equal(t, `{"route":"fallback"}`, out)
}

func TestEmbedBatch_Empty(t *testing.T) {
	c := New(Config{}, nil, zerolog.Nop())
	out, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

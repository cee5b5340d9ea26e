// Package runtime is the HTTP client shared by the embed client (C1) and
// the router's classification calls (C4): one small JSON-over-HTTP surface
// talking to a local or remote model runtime.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"enrichcore/internal/enrich/errs"
)

// EmbedClient is the batch-embedding contract. Both the HTTP Client below
// and the Deterministic embedder satisfy it.
type EmbedClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the contract the router depends on for classification calls.
type Generator interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type generateReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResp struct {
	Response string `json:"response"`
}

// Client talks to a local-runtime-style HTTP endpoint (default
// http://127.0.0.1:11434) for both embed and generate calls.
type Client struct {
	http *http.Client
	log  zerolog.Logger

	embedBaseURL string
	embedPath    string
	embedModel   string
	embedHeader  string
	embedAPIKey  string
	embedTimeout time.Duration

	genBaseURL string
	genModel   string
	genTimeout time.Duration

	health healthState
}

// Config bundles the fields the Client needs out of config.Config without
// depending on the config package directly (keeps runtime importable by
// tests that build Config values inline).
type Config struct {
	EmbedBaseURL string
	EmbedPath    string
	EmbedModel   string
	EmbedHeader  string
	EmbedAPIKey  string
	EmbedTimeout time.Duration

	GenBaseURL string
	GenModel   string
	GenTimeout time.Duration
}

// New constructs a Client. httpClient may be nil, in which case
// http.DefaultClient is used.
func New(cfg Config, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	embedTimeout := cfg.EmbedTimeout
	if embedTimeout == 0 {
		embedTimeout = 30 * time.Second
	}
	genTimeout := cfg.GenTimeout
	if genTimeout == 0 {
		genTimeout = 30 * time.Second
	}
	return &Client{
		http:         httpClient,
		log:          log.With().Str("component", "runtime_client").Logger(),
		embedBaseURL: cfg.EmbedBaseURL,
		embedPath:    cfg.EmbedPath,
		embedModel:   cfg.EmbedModel,
		embedHeader:  cfg.EmbedHeader,
		embedAPIKey:  cfg.EmbedAPIKey,
		embedTimeout: embedTimeout,
		genBaseURL:   cfg.GenBaseURL,
		genModel:     cfg.GenModel,
		genTimeout:   genTimeout,
	}
}

// EmbedBatch submits one HTTP call with all inputs and returns one
// embedding per input, in order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqBody, err := json.Marshal(embedReq{Model: c.embedModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("enrich: marshal embed request: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	url := c.embedBaseURL + c.embedPath
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("enrich: build embed request: %w", err)
	}
	c.setAuth(req, c.embedHeader, c.embedAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.health.record(false, c.log, "embed")
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("enrich: embed call: %w", errs.ErrRuntimeTimeout)
		}
		return nil, fmt.Errorf("enrich: embed call: %w", errs.ErrRuntimeUnavailable)
	}
	defer resp.Body.Close()
	c.health.record(true, c.log, "embed")

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("enrich: read embed response: %w", errs.ErrInvalidResponse)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("enrich: embed endpoint returned %s: %w", resp.Status, errs.ErrRuntimeUnavailable)
	}

	var er embedResp
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("enrich: parse embed response: %w", errs.ErrInvalidResponse)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("enrich: embed count mismatch got %d want %d: %w", len(er.Data), len(texts), errs.ErrInvalidResponse)
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}

// Generate sends a single prompt to the runtime's generate endpoint and
// returns the raw text response. jsonMode hints the runtime to constrain
// output to JSON where it supports that.
func (c *Client) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	body := generateReq{Model: c.genModel, Prompt: prompt, Stream: false}
	if jsonMode {
		body.Format = "json"
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("enrich: marshal generate request: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, c.genTimeout)
	defer cancel()

	url := c.genBaseURL + "/api/generate"
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("enrich: build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.health.record(false, c.log, "generate")
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("enrich: generate call: %w", errs.ErrRuntimeTimeout)
		}
		return "", fmt.Errorf("enrich: generate call: %w", errs.ErrRuntimeUnavailable)
	}
	defer resp.Body.Close()
	c.health.record(true, c.log, "generate")

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("enrich: read generate response: %w", errs.ErrInvalidResponse)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("enrich: generate endpoint returned %s: %w", resp.Status, errs.ErrRuntimeUnavailable)
	}

	var gr generateResp
	if err := json.Unmarshal(bodyBytes, &gr); err != nil {
		return "", fmt.Errorf("enrich: parse generate response: %w", errs.ErrInvalidResponse)
	}
	return gr.Response, nil
}

func (c *Client) setAuth(req *http.Request, header, key string) {
	if key == "" {
		return
	}
	if header == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+key)
	} else if header != "" {
		req.Header.Set(header, key)
	}
}

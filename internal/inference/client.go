// Package inference talks to the Workers AI REST API: text embeddings,
// image classification for the NSFW score, and image captions.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"viralpik/asset-service/internal/config"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	maxResponseBytes = 4 << 20
	captionPrompt    = "Describe this image in one or two sentences for a stock asset listing."
	captionMaxTokens = 256
	nsfwLabel        = "nsfw"
)

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("inference: upstream unavailable")
	// ErrEmptyResult is returned when a call succeeds without usable output.
	ErrEmptyResult = errors.New("inference: empty result")
	// ErrModelNotConfigured is returned for a task without a model.
	ErrModelNotConfigured = errors.New("inference: model not configured")
)

// APIError is a non-success answer from the inference API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference: status %d: %s", e.Status, e.Message)
}

// Client calls the models configured in config.AIConfig. All calls share
// one circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountID  string
	token      string

	embeddingModel string
	captionModel   string
	nsfwModel      string
	maxDimension   int

	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewClient builds a client from cfg. The caller checks cfg.Enabled().
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "workers-ai",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client mistakes say nothing about upstream health
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		accountID:      cfg.AccountID,
		token:          cfg.APIToken,
		embeddingModel: cfg.EmbeddingModel,
		captionModel:   cfg.CaptionModel,
		nsfwModel:      cfg.NSFWModel,
		maxDimension:   cfg.MaxImageDimension,
		cb:             gobreaker.NewCircuitBreaker(st),
		logger:         logger,
	}
}

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Embed returns the embedding vector of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out struct {
		Data [][]float32 `json:"data"`
	}
	if err := c.run(ctx, c.embeddingModel, map[string]any{"text": []string{text}}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0]) == 0 {
		return nil, ErrEmptyResult
	}
	return out.Data[0], nil
}

// ScoresNSFW reports whether an NSFW classifier is configured.
func (c *Client) ScoresNSFW() bool {
	return c.nsfwModel != ""
}

// ScoreNSFW classifies image and returns the score of the nsfw label.
// A model that does not report the label yields ErrEmptyResult.
func (c *Client) ScoreNSFW(ctx context.Context, image []byte) (float64, error) {
	if c.nsfwModel == "" {
		return 0, ErrModelNotConfigured
	}
	var out []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := c.run(ctx, c.nsfwModel, map[string]any{"image": byteInts(image)}, &out); err != nil {
		return 0, err
	}
	for _, l := range out {
		if strings.EqualFold(l.Label, nsfwLabel) {
			return l.Score, nil
		}
	}
	return 0, ErrEmptyResult
}

// Caption describes image in a sentence or two.
func (c *Client) Caption(ctx context.Context, image []byte) (string, error) {
	var out struct {
		Description string `json:"description"`
	}
	body := map[string]any{
		"image":      byteInts(image),
		"prompt":     captionPrompt,
		"max_tokens": captionMaxTokens,
	}
	if err := c.run(ctx, c.captionModel, body, &out); err != nil {
		return "", err
	}
	caption := strings.TrimSpace(out.Description)
	if caption == "" {
		return "", ErrEmptyResult
	}
	return caption, nil
}

func (c *Client) run(ctx context.Context, model string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	raw, err := c.cb.Execute(func() (interface{}, error) {
		return c.post(ctx, c.modelURL(model), payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}

	if err := json.Unmarshal(raw.(json.RawMessage), out); err != nil {
		return fmt.Errorf("inference: decode %s result: %w", model, err)
	}
	return nil
}

func (c *Client) modelURL(model string) string {
	return c.baseURL + "/accounts/" + c.accountID + "/ai/run/" + model
}

func (c *Client) post(ctx context.Context, url string, payload []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("inference: decode envelope: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		msg := "request failed"
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		status := resp.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return nil, &APIError{Status: status, Message: msg}
	}
	return env.Result, nil
}

// byteInts renders image bytes the way the API expects them: a JSON array
// of integers.
func byteInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/dydqjadlsp/detailpage/internal/pkg/httpx"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const (
	DefaultTextModel  = "gemini-2.0-flash-exp"
	DefaultImageModel = "gemini-2.0-flash-exp"
	DefaultVibeModel  = "gemini-2.5-flash"

	AspectRatioWide = "16:9"
)

var (
	ErrMissingAPIKey = errors.New("gemini: missing api key")
	ErrEmptyResponse = errors.New("gemini: empty response")
)

// ImageResult is one inline image payload. A zero value means the model
// answered without an image.
type ImageResult struct {
	Data     []byte
	MIMEType string
}

func (r ImageResult) Empty() bool { return len(r.Data) == 0 }

// Client is the subset of the Gemini API the page generator needs. The API
// key is per call because every user brings their own.
type Client interface {
	GenerateText(ctx context.Context, apiKey, model, prompt string) (string, error)
	GenerateImage(ctx context.Context, apiKey, model, prompt, aspectRatio string) (ImageResult, error)
}

// Observer receives one callback per provider call.
type Observer interface {
	ObserveLLMCall(op, model, status string, d time.Duration)
}

type Config struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	ClientTTL   time.Duration
}

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

type client struct {
	log      *logger.Logger
	cfg      Config
	clients  *cache.Cache
	factory  generatorFactory
	observer Observer
}

func NewClient(log *logger.Logger, cfg Config, observer Observer) Client {
	return newClient(log, cfg, observer, func(ctx context.Context, apiKey string) (contentGenerator, error) {
		c, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, err
		}
		return c.Models, nil
	})
}

func newClient(log *logger.Logger, cfg Config, observer Observer, factory generatorFactory) *client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = 30 * time.Minute
	}
	return &client{
		log:      log.With("client", "GeminiClient"),
		cfg:      cfg,
		clients:  cache.New(cfg.ClientTTL, cfg.ClientTTL*2),
		factory:  factory,
		observer: observer,
	}
}

func keyFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

func (c *client) generator(ctx context.Context, apiKey string) (contentGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	fp := keyFingerprint(apiKey)
	if g, ok := c.clients.Get(fp); ok {
		return g.(contentGenerator), nil
	}
	g, err := c.factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.clients.SetDefault(fp, g)
	return g, nil
}

func (c *client) GenerateText(ctx context.Context, apiKey, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultTextModel
	}
	resp, err := c.call(ctx, "text", apiKey, model, prompt, nil)
	if err != nil {
		return "", err
	}
	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *client) GenerateImage(ctx context.Context, apiKey, model, prompt, aspectRatio string) (ImageResult, error) {
	if model == "" {
		model = DefaultImageModel
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if aspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}
	resp, err := c.call(ctx, "image", apiKey, model, prompt, cfg)
	if err != nil {
		return ImageResult{}, err
	}
	return firstImage(resp), nil
}

// call issues one request with retry on transient provider failures.
func (c *client) call(ctx context.Context, op, apiKey, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	g, err := c.generator(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := httpx.JitterSleep(httpx.Backoff(attempt-1, c.cfg.BaseBackoff, c.cfg.MaxBackoff))
			c.log.Debug("Retrying gemini call", "op", op, "model", model, "attempt", attempt, "wait_ms", wait.Milliseconds())
			if err := httpx.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		resp, err := g.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		err = classify(err)
		c.observe(op, model, err, time.Since(start))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *client) observe(op, model string, err error, d time.Duration) {
	if c.observer == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		var pe *ProviderError
		if errors.As(err, &pe) {
			status = fmt.Sprintf("%d", pe.Status)
		}
	}
	c.observer.ObserveLLMCall(op, model, status, d)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text
		}
	}
	return ""
}

func firstImage(resp *genai.GenerateContentResponse) ImageResult {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ImageResult{}
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := strings.TrimSpace(part.InlineData.MIMEType)
		if mime == "" {
			mime = "image/png"
		}
		return ImageResult{Data: part.InlineData.Data, MIMEType: mime}
	}
	return ImageResult{}
}

package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type scriptedGenerator struct {
	mu        sync.Mutex
	calls     int
	lastModel string
	lastCfg   *genai.GenerateContentConfig
	responses []func() (*genai.GenerateContentResponse, error)
}

func (g *scriptedGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	g.lastModel = model
	g.lastCfg = cfg
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i]()
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveLLMCall(_, _, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func textResponse(s string) func() (*genai.GenerateContentResponse, error) {
	return func() (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: s}}},
		}}}, nil
	}
}

func failWith(code int) func() (*genai.GenerateContentResponse, error) {
	return func() (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: code, Message: "boom"}
	}
}

func newTestClient(gen *scriptedGenerator, obs Observer, retries int) (*client, *int) {
	created := 0
	c := newClient(logger.Nop(), Config{MaxRetries: retries, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, obs,
		func(context.Context, string) (contentGenerator, error) {
			created++
			return gen, nil
		})
	return c, &created
}

func TestGenerateTextReturnsFirstTextPart(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){textResponse(`{"content":[]}`)}}
	c, _ := newTestClient(gen, nil, 0)

	got, err := c.GenerateText(context.Background(), "key-123", "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"content":[]}`, got)
	assert.Equal(t, DefaultTextModel, gen.lastModel)
	assert.Nil(t, gen.lastCfg)
}

func TestGenerateTextEmptyCandidates(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){
		func() (*genai.GenerateContentResponse, error) { return &genai.GenerateContentResponse{}, nil },
	}}
	c, _ := newTestClient(gen, nil, 0)

	_, err := c.GenerateText(context.Background(), "key-123", "m", "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateTextRequiresKey(t *testing.T) {
	c, created := newTestClient(&scriptedGenerator{}, nil, 0)
	_, err := c.GenerateText(context.Background(), "  ", "m", "prompt")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, 0, *created)
}

func TestRetriesRetryableStatusThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){
		failWith(503), failWith(429), textResponse("ok"),
	}}
	obs := &recordingObserver{}
	c, _ := newTestClient(gen, obs, 2)

	got, err := c.GenerateText(context.Background(), "key-123", "m", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []string{"503", "429", "ok"}, obs.statuses)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){failWith(400), textResponse("ok")}}
	c, _ := newTestClient(gen, nil, 3)

	_, err := c.GenerateText(context.Background(), "key-123", "m", "prompt")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 400, pe.Status)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateImageSetsModalitiesAndAspect(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){
		func() (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "here you go"},
					{InlineData: &genai.Blob{Data: []byte("png-bytes")}},
				}},
			}}}, nil
		},
	}}
	c, _ := newTestClient(gen, nil, 0)

	img, err := c.GenerateImage(context.Background(), "key-123", "", "a product", AspectRatioWide)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	require.NotNil(t, gen.lastCfg)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, gen.lastCfg.ResponseModalities)
	require.NotNil(t, gen.lastCfg.ImageConfig)
	assert.Equal(t, "16:9", gen.lastCfg.ImageConfig.AspectRatio)
}

func TestGenerateImageWithoutPayloadIsEmptyNotError(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){textResponse("no image today")}}
	c, _ := newTestClient(gen, nil, 0)

	img, err := c.GenerateImage(context.Background(), "key-123", "m", "a product", "")
	require.NoError(t, err)
	assert.True(t, img.Empty())
}

func TestClientCachedPerKey(t *testing.T) {
	gen := &scriptedGenerator{responses: []func() (*genai.GenerateContentResponse, error){textResponse("ok")}}
	c, created := newTestClient(gen, nil, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GenerateText(ctx, "key-a", "m", "p")
		require.NoError(t, err)
	}
	_, err := c.GenerateText(ctx, "key-b", "m", "p")
	require.NoError(t, err)
	assert.Equal(t, 2, *created)
}

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/platform/gemini"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type fakeImages struct {
	mu       sync.Mutex
	fail     map[string]bool
	empty    map[string]bool
	hang     map[string]bool
	prompts  []string
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeImages) GenerateText(ctx context.Context, apiKey, model, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeImages) GenerateImage(ctx context.Context, apiKey, model, prompt, aspectRatio string) (gemini.ImageResult, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	title := sectionTitle(prompt)
	if f.hang[title] {
		<-ctx.Done()
		return gemini.ImageResult{}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[title] {
		return gemini.ImageResult{}, errors.New("provider exploded")
	}
	if f.empty[title] {
		return gemini.ImageResult{}, nil
	}
	return gemini.ImageResult{Data: []byte("png:" + title), MIMEType: "image/png"}, nil
}

func sectionTitle(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Section title: ") {
			return strings.TrimPrefix(line, "Section title: ")
		}
	}
	return ""
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failKey string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.failKey != "" && strings.HasSuffix(key, s.failKey) {
		return errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) GetPublicURL(key string) string {
	return "https://cdn.example.com/generated-images/" + key
}

type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *countingObserver) ObserveImageTask(result string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string]int{}
	}
	o.results[result]++
}

func docWithBlocks(n int) page.Document {
	doc := page.Document{Root: page.Root{Props: map[string]any{"title": "T"}}}
	for i := 0; i < n; i++ {
		doc.Content = append(doc.Content, page.Block{
			Type: "Features",
			Props: page.Props{
				"id":          fmt.Sprintf("b-%d", i),
				"title":       fmt.Sprintf("s%d", i),
				"imagePrompt": "a product shot",
			},
		})
	}
	return doc
}

func TestRenderImagesPartialFailure(t *testing.T) {
	imgs := &fakeImages{
		fail:  map[string]bool{"s1": true},
		empty: map[string]bool{"s3": true},
	}
	store := newFakeStore()
	obs := &countingObserver{}
	pid := uuid.New()
	doc := docWithBlocks(5)

	out, err := RenderImages(context.Background(), RenderImagesDeps{
		Log: logger.Nop(), Images: imgs, Store: store, Observer: obs,
	}, RenderImagesInput{
		ProjectID: pid, APIKey: "k", Model: "m", Category: "ecommerce", Document: doc,
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 5)
	assert.Len(t, out.URLs, 3)
	assert.Equal(t, 2, out.Failed())
	assert.NotContains(t, out.URLs, "b-1")
	assert.NotContains(t, out.URLs, "b-3")
	assert.Equal(t, "https://cdn.example.com/generated-images/"+pid.String()+"/b-0.png", out.URLs["b-0"])
	assert.Equal(t, "image/png", store.types[pid.String()+"/b-0.png"])
	assert.Equal(t, 3, obs.results[ImageResultStored])
	assert.Equal(t, 1, obs.results[ImageResultEmpty])
	assert.Equal(t, 1, obs.results[ImageResultFailed])

	final := Reconcile(doc, out.URLs)
	assert.Equal(t, 3, final.CountImages())
	assert.Equal(t, []byte("png:s0"), out.ImageFor("b-0"))
	assert.Nil(t, out.ImageFor("b-1"))
}

func TestRenderImagesSkipsBlocksWithoutDirective(t *testing.T) {
	doc := docWithBlocks(3)
	doc.Content[1].Props["imagePrompt"] = "   "
	imgs := &fakeImages{}
	out, err := RenderImages(context.Background(), RenderImagesDeps{Images: imgs, Store: newFakeStore()},
		RenderImagesInput{ProjectID: uuid.New(), Document: doc})
	require.NoError(t, err)
	assert.Len(t, out.Outcomes, 2)
	assert.Len(t, imgs.prompts, 2)
}

func TestRenderImagesRespectsConcurrencyLimit(t *testing.T) {
	imgs := &fakeImages{delay: 15 * time.Millisecond}
	_, err := RenderImages(context.Background(), RenderImagesDeps{Images: imgs, Store: newFakeStore()},
		RenderImagesInput{ProjectID: uuid.New(), Document: docWithBlocks(10), Concurrency: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&imgs.maxSeen), int32(2))
}

func TestRenderImagesTaskTimeoutDoesNotBlockSiblings(t *testing.T) {
	imgs := &fakeImages{hang: map[string]bool{"s0": true}}
	obs := &countingObserver{}
	out, err := RenderImages(context.Background(), RenderImagesDeps{Images: imgs, Store: newFakeStore(), Observer: obs},
		RenderImagesInput{ProjectID: uuid.New(), Document: docWithBlocks(3), TaskTimeout: 30 * time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, out.URLs, 2)
	assert.Equal(t, 1, obs.results[ImageResultTimeout])
}

func TestRenderImagesUploadFailureDegradesBlock(t *testing.T) {
	store := newFakeStore()
	store.failKey = "b-2.png"
	obs := &countingObserver{}
	out, err := RenderImages(context.Background(), RenderImagesDeps{Images: &fakeImages{}, Store: store, Observer: obs},
		RenderImagesInput{ProjectID: uuid.New(), Document: docWithBlocks(3)})
	require.NoError(t, err)
	assert.Len(t, out.URLs, 2)
	assert.Equal(t, 1, obs.results[ImageResultUnstored])
}

func TestRenderImagesRequiresDeps(t *testing.T) {
	_, err := RenderImages(context.Background(), RenderImagesDeps{}, RenderImagesInput{ProjectID: uuid.New()})
	require.Error(t, err)
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, DefaultImageConcurrency, ClampConcurrency(0))
	assert.Equal(t, 1, ClampConcurrency(1))
	assert.Equal(t, MaxImageConcurrency, ClampConcurrency(64))
}

func TestReconcileIdempotentAndNonMutating(t *testing.T) {
	doc := docWithBlocks(4)
	urls := map[string]string{"b-0": "u0", "b-2": "u2", "missing": "x"}

	once := Reconcile(doc, urls)
	twice := Reconcile(once, urls)
	assert.Equal(t, once, twice)

	assert.Equal(t, "u0", once.Content[0].ImageURL())
	assert.Equal(t, "u2", once.Content[2].ImageURL())
	assert.Equal(t, doc.Content[1], once.Content[1])
	assert.Equal(t, doc.Content[3], once.Content[3])
	assert.Equal(t, "", doc.Content[0].ImageURL(), "input document must not change")
	assert.Equal(t, doc.Root, once.Root)
}

func TestReconcileEmptyMapping(t *testing.T) {
	doc := docWithBlocks(2)
	assert.Equal(t, doc.Content, Reconcile(doc, nil).Content)
}

func TestImageKey(t *testing.T) {
	pid := uuid.MustParse("11111111-2222-4333-8444-555555555555")
	assert.Equal(t, "11111111-2222-4333-8444-555555555555/hero-0.png", ImageKey(pid, "hero-0"))
	assert.Equal(t, "11111111-2222-4333-8444-555555555555/thumbnail.png", ThumbnailKey(pid))
}

func TestStoreImageRejectsEmptyBlockID(t *testing.T) {
	_, err := StoreImage(context.Background(), newFakeStore(), uuid.New(), " ", []byte("x"))
	require.ErrorIs(t, err, ErrStore)
}

func decodeStored(t *testing.T, store *fakeStore, key string) image.Image {
	t.Helper()
	raw, ok := store.objects[key]
	require.True(t, ok, "object %s not stored", key)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestRenderThumbnailDownscalesFirstImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1600, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1600; x++ {
			src.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, src))

	store := newFakeStore()
	pid := uuid.New()
	url, err := RenderThumbnail(context.Background(), RenderThumbnailDeps{Log: logger.Nop(), Store: store},
		RenderThumbnailInput{ProjectID: pid, Document: docWithBlocks(2), FirstImage: raw.Bytes()})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, pid.String()+"/thumbnail.png"))

	img := decodeStored(t, store, ThumbnailKey(pid))
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	assert.Equal(t, ThumbnailHeight, img.Bounds().Dy())
	r, _, _, _ := img.At(ThumbnailWidth/2, ThumbnailHeight/2).RGBA()
	assert.Greater(t, r>>8, uint32(150))
}

func TestRenderThumbnailSilhouetteFromBackgrounds(t *testing.T) {
	doc := docWithBlocks(2)
	doc.Content[0].Props["backgroundColor"] = "#0000ff"
	doc.Content[1].Props["backgroundColor"] = "not-a-color"

	store := newFakeStore()
	pid := uuid.New()
	_, err := RenderThumbnail(context.Background(), RenderThumbnailDeps{Store: store},
		RenderThumbnailInput{ProjectID: pid, Document: doc, FirstImage: []byte("garbage")})
	require.NoError(t, err)

	img := decodeStored(t, store, ThumbnailKey(pid))
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	_, _, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, uint32(0xFF), b>>8)
	r, _, _, _ := img.At(5, ThumbnailHeight/2+20).RGBA()
	assert.Equal(t, uint32(fallbackBand.R), r>>8)
}

func TestParseHexColor(t *testing.T) {
	c, ok := parseHexColor("#abc")
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 0xAA, G: 0xBB, B: 0xCC, A: 0xFF}, c)
	_, ok = parseHexColor("#12345")
	assert.False(t, ok)
}

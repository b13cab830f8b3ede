package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/prompts"
	"github.com/dydqjadlsp/detailpage/internal/platform/gemini"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const (
	DefaultImageConcurrency = 4
	MaxImageConcurrency     = 8
	DefaultImageTaskTimeout = 90 * time.Second
)

// Image task results, as reported to the observer.
const (
	ImageResultStored   = "stored"
	ImageResultEmpty    = "empty"
	ImageResultFailed   = "failed"
	ImageResultTimeout  = "timeout"
	ImageResultUnstored = "upload_failed"
)

var ErrNoImage = errors.New("model returned no image")

// ImageObserver receives one callback per settled image task.
type ImageObserver interface {
	ObserveImageTask(result string, d time.Duration)
}

type RenderImagesDeps struct {
	Log      *logger.Logger
	Images   gemini.Client
	Store    ObjectStore
	Limiter  *rate.Limiter
	Observer ImageObserver
}

type RenderImagesInput struct {
	ProjectID   uuid.UUID
	APIKey      string
	Model       string
	Category    string
	Document    page.Document
	Concurrency int
	TaskTimeout time.Duration
}

// ImageOutcome is the settled result of one block's image task. URL is empty
// when Err is set.
type ImageOutcome struct {
	BlockID  string
	URL      string
	Data     []byte
	Duration time.Duration
	Err      error
}

type RenderImagesOutput struct {
	Outcomes []ImageOutcome
	// URLs holds successful uploads only, keyed by block id.
	URLs map[string]string
}

func (o RenderImagesOutput) Failed() int { return len(o.Outcomes) - len(o.URLs) }

// ImageFor returns the generated bytes for blockID, if any.
func (o RenderImagesOutput) ImageFor(blockID string) []byte {
	for _, oc := range o.Outcomes {
		if oc.BlockID == blockID && oc.Err == nil {
			return oc.Data
		}
	}
	return nil
}

// ClampConcurrency bounds n to [1, MaxImageConcurrency], mapping zero or
// negative values to the default.
func ClampConcurrency(n int) int {
	if n <= 0 {
		return DefaultImageConcurrency
	}
	if n > MaxImageConcurrency {
		return MaxImageConcurrency
	}
	return n
}

// RenderImages generates and stores one image per block carrying an image
// directive. Tasks never fail the group: every outcome, good or bad, lands in
// its own slot and the group is awaited to completion.
func RenderImages(ctx context.Context, deps RenderImagesDeps, in RenderImagesInput) (RenderImagesOutput, error) {
	out := RenderImagesOutput{URLs: map[string]string{}}
	if deps.Images == nil || deps.Store == nil {
		return out, fmt.Errorf("render_images: missing deps")
	}
	if in.ProjectID == uuid.Nil {
		return out, fmt.Errorf("render_images: missing project_id")
	}
	blocks := in.Document.ImageBlocks()
	if len(blocks) == 0 {
		return out, nil
	}
	timeout := in.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultImageTaskTimeout
	}

	outcomes := make([]ImageOutcome, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ClampConcurrency(in.Concurrency))

	for i, b := range blocks {
		i, b := i, b
		g.Go(func() error {
			start := time.Now()
			tctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			oc := renderOne(tctx, deps, in, b)
			oc.Duration = time.Since(start)
			outcomes[i] = oc

			result := classifyOutcome(oc)
			if deps.Observer != nil {
				deps.Observer.ObserveImageTask(result, oc.Duration)
			}
			if oc.Err != nil && deps.Log != nil {
				deps.Log.Warn("image task settled without image",
					"project_id", in.ProjectID.String(),
					"block_id", oc.BlockID,
					"block_type", b.Type,
					"result", result,
					"error", oc.Err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	out.Outcomes = outcomes
	for _, oc := range outcomes {
		if oc.Err == nil && oc.URL != "" {
			out.URLs[oc.BlockID] = oc.URL
		}
	}
	return out, nil
}

func renderOne(ctx context.Context, deps RenderImagesDeps, in RenderImagesInput, b page.Block) ImageOutcome {
	oc := ImageOutcome{BlockID: b.ID()}
	if deps.Limiter != nil {
		if err := deps.Limiter.Wait(ctx); err != nil {
			oc.Err = fmt.Errorf("wait for image slot: %w", err)
			return oc
		}
	}
	prompt, err := prompts.Image(b.Type, b.Title(), b.ImagePrompt(), in.Category)
	if err != nil {
		oc.Err = err
		return oc
	}
	img, err := deps.Images.GenerateImage(ctx, in.APIKey, in.Model, prompt, gemini.AspectRatioWide)
	if err != nil {
		oc.Err = fmt.Errorf("generate image: %w", err)
		return oc
	}
	if img.Empty() {
		oc.Err = ErrNoImage
		return oc
	}
	url, err := StoreImage(ctx, deps.Store, in.ProjectID, oc.BlockID, img.Data)
	if err != nil {
		oc.Err = err
		return oc
	}
	oc.URL = url
	oc.Data = img.Data
	return oc
}

func classifyOutcome(oc ImageOutcome) string {
	switch {
	case oc.Err == nil:
		return ImageResultStored
	case errors.Is(oc.Err, ErrNoImage):
		return ImageResultEmpty
	case errors.Is(oc.Err, context.DeadlineExceeded):
		return ImageResultTimeout
	case errors.Is(oc.Err, ErrStore):
		return ImageResultUnstored
	default:
		return ImageResultFailed
	}
}

package pagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/docparse"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/prompts"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/steps"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/gemini"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

var (
	ErrTextGeneration = errors.New("text generation failed")
	ErrParse          = errors.New("model output could not be parsed")
	ErrPersistence    = errors.New("project persistence failed")
)

// finalizeTimeout bounds the writes made after the image fan-out settles.
const finalizeTimeout = 30 * time.Second

// Observer is fed run-level and per-image events. Implementations must be
// safe for concurrent use.
type Observer interface {
	steps.ImageObserver
	ObserveTransition(from, to string)
	ObserveRun(outcome string, d time.Duration)
}

type Deps struct {
	Log    *logger.Logger
	Gemini gemini.Client
	Store  steps.ObjectStore

	Projects       repos.ProjectRepo
	GenerationLogs repos.GenerationLogRepo
	VibeSessions   repos.VibeSessionRepo

	// Limiter paces image requests across every run in the process.
	Limiter  *rate.Limiter
	Observer Observer
	Catalog  *page.Catalog
}

type Config struct {
	TextModel        string
	ImageModel       string
	VibeModel        string
	ImageConcurrency int
	ImageTaskTimeout time.Duration
	Thumbnails       bool
}

type Request struct {
	UserID      uuid.UUID
	APIKey      string
	Category    string
	Inputs      page.Inputs
	PixelHeight string
}

type Result struct {
	ProjectID       uuid.UUID     `json:"projectId"`
	PuckData        page.Document `json:"puckData"`
	ImagesGenerated int           `json:"imagesGenerated"`
	TotalSections   int           `json:"totalSections"`
}

type Pipeline struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

func New(deps Deps, cfg Config) *Pipeline {
	if cfg.TextModel == "" {
		cfg.TextModel = gemini.DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = gemini.DefaultImageModel
	}
	if cfg.VibeModel == "" {
		cfg.VibeModel = gemini.DefaultVibeModel
	}
	if deps.Catalog == nil {
		deps.Catalog = page.DefaultCatalog()
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Pipeline{deps: deps, cfg: cfg, log: deps.Log.With("module", "pagegen")}
}

// ModelVersion is recorded on every generation log row.
func (p *Pipeline) ModelVersion() string {
	return p.cfg.TextModel + " + " + p.cfg.ImageModel
}

type run struct {
	p     *Pipeline
	state RunState
	start time.Time
	log   *logger.Logger
}

func (r *run) advance(next RunState) {
	if !r.state.CanTransition(next) {
		r.log.Error("illegal run transition", "from", string(r.state), "to", string(next))
		return
	}
	r.log.Debug("run transition", "from", string(r.state), "to", string(next))
	if o := r.p.deps.Observer; o != nil {
		o.ObserveTransition(string(r.state), string(next))
		if next.Terminal() {
			o.ObserveRun(string(next), time.Since(r.start))
		}
	}
	r.state = next
}

func (r *run) fail(next RunState, sentinel, cause error) error {
	r.advance(next)
	r.log.Warn("generation run failed", "state", string(next), "error", cause)
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Run executes one generation: text, parse, insert, images, reconcile, update.
// Text and parse failures return before any project row exists.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if p.deps.Gemini == nil || p.deps.Store == nil || p.deps.Projects == nil {
		return nil, fmt.Errorf("pagegen: missing deps")
	}
	r := &run{
		p:     p,
		state: StatePending,
		start: time.Now(),
		log:   p.log.With("user_id", req.UserID.String(), "category", req.Category),
	}

	preset := p.deps.Catalog.Preset(req.PixelHeight)
	prompt := prompts.Text(p.deps.Catalog, req.Category, req.Inputs, preset.Sections)

	text, err := p.deps.Gemini.GenerateText(ctx, req.APIKey, p.cfg.TextModel, prompt)
	if err != nil {
		return nil, r.fail(StateTextGenerationFailed, ErrTextGeneration, err)
	}
	r.advance(StateTextReceived)

	doc, err := docparse.Parse(text)
	if err != nil {
		return nil, r.fail(StateParseFailed, ErrParse, err)
	}
	r.advance(StateParsed)

	if conv := doc.Conventions(); !conv.OK() {
		r.log.Warn("model ignored layout conventions",
			"first_is_landing", conv.FirstIsLanding,
			"last_is_cta", conv.LastIsCTA,
			"blocks", len(doc.Content),
		)
	}

	proj, err := p.insertProject(ctx, req, doc)
	if err != nil {
		return nil, r.fail(StatePersistenceFailed, ErrPersistence, err)
	}
	r.log = r.log.With("project_id", proj.ID.String())
	r.advance(StateImagesInFlight)

	images, err := steps.RenderImages(ctx, steps.RenderImagesDeps{
		Log:      r.log,
		Images:   p.deps.Gemini,
		Store:    p.deps.Store,
		Limiter:  p.deps.Limiter,
		Observer: p.deps.Observer,
	}, steps.RenderImagesInput{
		ProjectID:   proj.ID,
		APIKey:      req.APIKey,
		Model:       p.cfg.ImageModel,
		Category:    req.Category,
		Document:    doc,
		Concurrency: p.cfg.ImageConcurrency,
		TaskTimeout: p.cfg.ImageTaskTimeout,
	})
	if err != nil {
		r.log.Warn("image fan-out skipped", "error", err)
	}
	final := steps.Reconcile(doc, images.URLs)
	r.advance(StateReconciled)

	// The row already exists as generating; finish it even if the caller left.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	updates := map[string]interface{}{
		"status":     string(types.ProjectStatusDraft),
		"updated_at": time.Now().UTC(),
	}
	if thumb := p.thumbnail(persistCtx, r.log, proj.ID, final, images); thumb != "" {
		updates["thumbnail_url"] = thumb
	}
	raw, err := json.Marshal(final)
	if err != nil {
		return nil, r.fail(StatePersistenceFailed, ErrPersistence, err)
	}
	updates["puck_data"] = datatypes.JSON(raw)
	updated, err := p.deps.Projects.UpdateFields(dbctx.Context{Ctx: persistCtx}, proj.ID, updates)
	if err != nil {
		return nil, r.fail(StatePersistenceFailed, ErrPersistence, err)
	}
	if updated == nil {
		return nil, r.fail(StatePersistenceFailed, ErrPersistence, fmt.Errorf("project %s vanished before update", proj.ID))
	}
	r.advance(StateDone)

	p.writeGenerationLog(persistCtx, r.log, req, proj.ID, prompt, raw)

	r.log.Info("generation run done",
		"blocks", len(final.Content),
		"images_requested", len(images.Outcomes),
		"images_generated", len(images.URLs),
		"duration_ms", time.Since(r.start).Milliseconds(),
	)
	return &Result{
		ProjectID:       proj.ID,
		PuckData:        final,
		ImagesGenerated: len(images.URLs),
		TotalSections:   len(final.Content),
	}, nil
}

func (p *Pipeline) insertProject(ctx context.Context, req Request, doc page.Document) (*types.Project, error) {
	docRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	inputsRaw, err := json.Marshal(req.Inputs)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	return p.deps.Projects.Create(dbctx.Context{Ctx: ctx}, &types.Project{
		UserID:    req.UserID,
		Title:     req.Inputs.ProjectTitle(req.Category),
		Category:  req.Category,
		Status:    types.ProjectStatusGenerating,
		PuckData:  datatypes.JSON(docRaw),
		InputData: datatypes.JSON(inputsRaw),
	})
}

// thumbnail never fails the run; an empty string means no thumbnail.
func (p *Pipeline) thumbnail(ctx context.Context, log *logger.Logger, projectID uuid.UUID, doc page.Document, images steps.RenderImagesOutput) string {
	if !p.cfg.Thumbnails {
		return ""
	}
	var first []byte
	if len(doc.Content) > 0 {
		first = images.ImageFor(doc.Content[0].ID())
	}
	url, err := steps.RenderThumbnail(ctx, steps.RenderThumbnailDeps{Log: log, Store: p.deps.Store}, steps.RenderThumbnailInput{
		ProjectID:  projectID,
		Document:   doc,
		FirstImage: first,
	})
	if err != nil {
		log.Warn("thumbnail skipped", "error", err)
		return ""
	}
	return url
}

func (p *Pipeline) writeGenerationLog(ctx context.Context, log *logger.Logger, req Request, projectID uuid.UUID, prompt string, output []byte) {
	if p.deps.GenerationLogs == nil {
		return
	}
	inputsRaw, err := json.Marshal(req.Inputs)
	if err != nil {
		inputsRaw = []byte("{}")
	}
	if err := p.deps.GenerationLogs.Create(dbctx.Context{Ctx: ctx}, &types.GenerationLog{
		ProjectID:    projectID,
		UserID:       req.UserID,
		Prompt:       prompt,
		Category:     req.Category,
		InputData:    datatypes.JSON(inputsRaw),
		OutputData:   datatypes.JSON(output),
		ModelVersion: p.ModelVersion(),
		TokensUsed:   0,
	}); err != nil {
		log.Warn("generation log not written", "error", err)
	}
}

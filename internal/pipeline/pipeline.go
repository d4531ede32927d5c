package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
	"creativeagent/internal/providers/render"
	"creativeagent/internal/retrieval"
)

const defaultTimeout = 120 * time.Second

// AuditSaver persists audit records. Persistence failures never fail a
// generation; the response already carries the record.
type AuditSaver interface {
	Save(ctx context.Context, req domain.GenerationRequest, audit domain.AuditRecord, optionCount int) error
}

// Options wires the pipeline's collaborators.
type Options struct {
	Planner   *Planner
	Generator *Generator
	Checker   *Checker
	Retriever retrieval.Retriever
	Renderer  render.Renderer
	Audits    AuditSaver
	Timeout   time.Duration
	Logger    *infra.Logger
}

// Pipeline runs a brief end to end: plan, retrieve, generate, build prompts,
// render, check compliance, rank, assemble. Every degraded step is recorded
// in the audit record rather than hidden.
type Pipeline struct {
	planner   *Planner
	generator *Generator
	checker   *Checker
	retriever retrieval.Retriever
	renderer  render.Renderer
	audits    AuditSaver
	timeout   time.Duration
	logger    infra.Logger
}

// New constructs a pipeline. Planner, generator and checker are required;
// retriever and renderer may be nil, which degrades retrieval to an empty
// context and rendering to unavailable.
func New(opts Options) (*Pipeline, error) {
	if opts.Planner == nil || opts.Generator == nil || opts.Checker == nil {
		return nil, fmt.Errorf("pipeline: planner, generator and checker are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Pipeline{
		planner:   opts.Planner,
		generator: opts.Generator,
		checker:   opts.Checker,
		retriever: opts.Retriever,
		renderer:  opts.Renderer,
		audits:    opts.Audits,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Generate runs the whole pipeline under a request-scoped deadline. When the
// deadline expires mid-flight the response still carries every option with a
// compliance result and scores; affected options and the audit record are
// marked partial.
func (p *Pipeline) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	audit := domain.AuditRecord{
		GenerationID:  uuid.NewString(),
		ModelVersions: map[string]string{},
		StartedAt:     time.Now().UTC(),
	}

	plan, err := p.planner.BuildPlan(req)
	if err != nil {
		return nil, err
	}

	rctx := p.retrieve(ctx, plan, &audit)
	audit.RetrievedSourceIDs = rctx.SourceIDs()

	outcome, err := p.generator.Generate(ctx, plan, rctx)
	if err != nil {
		return nil, err
	}
	recordGeneration(&audit, outcome)

	options := outcome.Options
	for _, opt := range options {
		BuildPrompts(opt, plan)
	}

	p.renderAll(ctx, options, plan, &audit)
	p.checkAll(ctx, options, plan, &audit)
	Rank(options, plan)

	audit.CompletedAt = time.Now().UTC()
	p.logger.Info().
		Str("generation_id", audit.GenerationID).
		Int("options", len(options)).
		Int("shortfall", audit.Shortfall).
		Bool("partial", audit.Partial).
		Dur("elapsed", audit.CompletedAt.Sub(audit.StartedAt)).
		Msg("pipeline: generation complete")

	if p.audits != nil {
		if err := p.audits.Save(ctx, req, audit, len(options)); err != nil {
			p.logger.Warn().Err(err).Str("generation_id", audit.GenerationID).Msg("pipeline: audit persistence failed")
		}
	}

	return &domain.GenerateResponse{
		Request:           req,
		Options:           options,
		GlobalDisclaimers: globalDisclaimers(plan),
		Audit:             audit,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, plan domain.GenerationPlan, audit *domain.AuditRecord) retrieval.Context {
	if p.retriever == nil {
		audit.Flags = append(audit.Flags, "retrieval skipped: no retriever configured")
		return retrieval.Context{}
	}
	rctx, err := p.retriever.Retrieve(ctx, plan)
	if err != nil {
		p.logger.Warn().Err(err).Msg("pipeline: retrieval failed, continuing without context")
		audit.Flags = append(audit.Flags, fmt.Sprintf("retrieval failed: %v", err))
		return retrieval.Context{}
	}
	return rctx
}

func recordGeneration(audit *domain.AuditRecord, outcome *GenerationOutcome) {
	if outcome.ModelID != "" {
		audit.ModelVersions["generation"] = outcome.ModelID
	}
	audit.Shortfall = outcome.Shortfall
	if outcome.Shortfall > 0 {
		audit.Flags = append(audit.Flags, fmt.Sprintf("option shortfall: %d fewer than requested", outcome.Shortfall))
	}
	if outcome.UsedFallback {
		audit.Flags = append(audit.Flags, "deterministic fallback option emitted")
	}
	if outcome.Clamped {
		audit.Flags = append(audit.Flags, "output token budget clamped to model limit")
	}
	if outcome.Repaired {
		audit.Flags = append(audit.Flags, "model response repaired after invalid JSON")
	}
}

// renderAll fans out one render per option, slot and language. Render
// failures are per-slot data; they never abort the group.
func (p *Pipeline) renderAll(ctx context.Context, options []*domain.CreativeOption, plan domain.GenerationPlan, audit *domain.AuditRecord) {
	if p.renderer == nil {
		for _, opt := range options {
			for _, perLang := range opt.Prompts {
				for _, pr := range perLang {
					pr.Status = domain.GenerationUnavailable
					pr.ErrorMessage = "no renderer configured"
				}
			}
		}
		audit.Flags = append(audit.Flags, "rendering skipped: no renderer configured")
		return
	}
	audit.ModelVersions["render"] = p.renderer.Name()

	var mu sync.Mutex
	failures := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, opt := range options {
		for _, perLang := range opt.Prompts {
			for _, pr := range perLang {
				pr := pr
				g.Go(func() error {
					res := p.renderer.Render(gctx, render.Request{
						Prompt:         pr.ImagePrompt,
						NegativePrompt: pr.NegativePrompt,
						AspectRatio:    pr.AspectRatio,
						Seed:           plan.Seed,
						RequestID:      audit.GenerationID,
					})
					pr.ImageURI = res.URI
					pr.Status = domain.GenerationStatus(res.Status)
					pr.ErrorMessage = res.Err
					if res.Status != render.StatusCompleted {
						mu.Lock()
						failures++
						mu.Unlock()
					}
					return nil
				})
			}
		}
	}
	_ = g.Wait()
	if failures > 0 {
		audit.Flags = append(audit.Flags, fmt.Sprintf("%d render slot(s) did not complete", failures))
	}
}

// checkAll runs compliance per option concurrently. When the deadline
// expires before an option's model layer finishes, that option keeps its
// deterministic rule result and is marked partial.
func (p *Pipeline) checkAll(ctx context.Context, options []*domain.CreativeOption, plan domain.GenerationPlan, audit *domain.AuditRecord) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, opt := range options {
		opt := opt
		g.Go(func() error {
			if gctx.Err() != nil {
				opt.Compliance = CheckRules(opt, plan)
				opt.Partial = true
				mu.Lock()
				audit.Partial = true
				mu.Unlock()
				return nil
			}
			result, note := p.checker.Check(gctx, opt, plan)
			opt.Compliance = result
			if note != "" {
				// A deadline hit mid-call also leaves a rule-only result.
				if gctx.Err() != nil {
					opt.Partial = true
				}
				mu.Lock()
				if opt.Partial {
					audit.Partial = true
				}
				audit.Flags = append(audit.Flags, note)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if audit.Partial {
		audit.Flags = append(audit.Flags, "deadline reached: some compliance results are rule-layer only")
	}
}

func globalDisclaimers(plan domain.GenerationPlan) map[string]string {
	rs := RulesetByID(plan.RulesetID)
	out := make(map[string]string, len(plan.Languages))
	for _, lang := range plan.Languages {
		if d := rs.RequiredDisclaimer(lang); d != "" {
			out[lang] = d
		}
	}
	return out
}

// Package enhance appends permission-gated cultural context to a base response.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/culture"
	"github.com/ppiankov/wisdomgate/internal/logging"
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
	"github.com/ppiankov/wisdomgate/internal/profile"
	"github.com/ppiankov/wisdomgate/internal/shadow"
)

// ErrStageFailure wraps any error or panic inside a pipeline stage.
// It is recorded in the compliance report and never returned.
var ErrStageFailure = errors.New("enhancement stage failed")

// Profile sources reported in ComplianceReport.ProfileSource.
const (
	SourceRequest  = "request"
	SourceProvider = "provider"
	SourceDetected = "detected"
	SourceFallback = "fallback"
	SourceDisabled = "disabled"
)

// Stage names, in pipeline order.
const (
	StageProfile     = "profile"
	StagePermission  = "permission"
	StageTranslation = "translation"
	StageShadow      = "shadow"
	StageSynthesis   = "synthesis"
	StageFinalize    = "finalize"
)

// Recorder receives every permission decision the pipeline makes and, for
// identified requesters, the outcome of each run.
type Recorder interface {
	RecordDecision(requestID string, d model.PermissionDecision, registryHash string) error
	RecordEnhancement(requesterID string, res model.EnhancementResult, registryHash string) error
}

// Config controls the pipeline.
type Config struct {
	Enabled          bool
	ProfileTimeout   time.Duration
	DefaultIntention string
}

// Deps are the collaborators. Evaluator, Translator, Matcher and Detector
// are required; Profiles, Recorder and Logger are optional.
type Deps struct {
	Evaluator  *permission.Evaluator
	Translator *archetype.Translator
	Matcher    *shadow.Matcher
	Detector   *culture.Detector
	Profiles   profile.Provider
	Recorder   Recorder
	Logger     *zap.Logger
}

// Orchestrator runs the enhancement pipeline. Safe for concurrent use.
type Orchestrator struct {
	cfg        Config
	evaluator  *permission.Evaluator
	translator *archetype.Translator
	matcher    *shadow.Matcher
	detector   *culture.Detector
	profiles   profile.Provider
	recorder   Recorder
	logger     *zap.Logger
	tracer     trace.Tracer
}

// New validates deps and builds an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Evaluator == nil:
		return nil, fmt.Errorf("permission evaluator is required")
	case deps.Translator == nil:
		return nil, fmt.Errorf("archetype translator is required")
	case deps.Matcher == nil:
		return nil, fmt.Errorf("shadow matcher is required")
	case deps.Detector == nil:
		return nil, fmt.Errorf("context detector is required")
	}
	if cfg.ProfileTimeout <= 0 {
		cfg.ProfileTimeout = 2 * time.Second
	}
	return &Orchestrator{
		cfg:        cfg,
		evaluator:  deps.Evaluator,
		translator: deps.Translator,
		matcher:    deps.Matcher,
		detector:   deps.Detector,
		profiles:   deps.Profiles,
		recorder:   deps.Recorder,
		logger:     logging.OrNop(deps.Logger),
		tracer:     otel.Tracer("github.com/ppiankov/wisdomgate/internal/enhance"),
	}, nil
}

// Enabled reports whether enhancement is switched on.
func (o *Orchestrator) Enabled() bool { return o.cfg.Enabled }

// run carries intermediate state between stages.
type run struct {
	req          model.EnhancementRequest
	profile      model.CulturalProfile
	declared     *model.CulturalProfile
	traditions   []string
	decisions    map[string]model.PermissionDecision
	translations []archetype.Translation
	record       bool
}

// Enhance runs the pipeline. It never returns an error and never panics:
// the result always starts with the base response and carries
// BaseResponsePreserved=true.
//
// Stages, in order:
//  1. profile: request profile, then provider (with timeout), then text detection;
//     a profile that opts out of enhancement ends the run with the base response
//  2. permission: every implicated tradition, evaluated concurrently
//  3. translation: permitted traditions only
//  4. shadow: always, on the requester's own text
//  5. synthesis: append framing, expression, shadow guidance, overlap, attribution
//  6. finalize: recommendations, attributions, compliance report (always runs)
//
// A failed stage is logged and reported; later stages continue with what
// exists. Cancellation skips stages 1 to 5.
func (o *Orchestrator) Enhance(ctx context.Context, req model.EnhancementRequest) model.EnhancementResult {
	return o.enhance(ctx, req, true)
}

func (o *Orchestrator) enhance(ctx context.Context, req model.EnhancementRequest, record bool) (res model.EnhancementResult) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	res = model.EnhancementResult{
		RequestID:             req.RequestID,
		BaseResponsePreserved: true,
		EnhancedText:          req.BaseResponse,
		Recommendations:       []string{},
		Attributions:          []string{},
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("enhancement aborted",
				zap.String("request_id", req.RequestID),
				zap.Any("panic", r))
			res.EnhancedText = req.BaseResponse
			res.Enhanced = false
			res.BaseResponsePreserved = true
		}
	}()

	if !o.cfg.Enabled {
		res.Profile = fallbackProfile()
		res.Report.ProfileSource = SourceDisabled
		return res
	}

	ctx, span := o.tracer.Start(ctx, "enhance",
		trace.WithAttributes(
			attribute.String("request_id", req.RequestID),
			attribute.String("concept", req.Concept)))
	defer span.End()

	st := &run{req: req, profile: fallbackProfile(), record: record}
	res.Report.ProfileSource = SourceFallback

	o.stage(ctx, &res, StageProfile, func(ctx context.Context) error {
		p, declared, source := o.resolveProfile(ctx, req)
		st.profile = p
		st.declared = declared
		res.Report.ProfileSource = source
		return nil
	})
	res.Profile = st.profile

	if !st.profile.WantsEnhancement() {
		res.Report.OptedOut = true
		o.recordOutcome(st, res)
		return res
	}

	o.stage(ctx, &res, StagePermission, func(ctx context.Context) error {
		return o.evaluateAll(ctx, st, &res)
	})

	if anyPermitted(res.Decisions) {
		o.stage(ctx, &res, StageTranslation, func(ctx context.Context) error {
			o.translateAll(st, &res)
			return nil
		})
	} else {
		res.Report.Stages = append(res.Report.Stages, model.StageReport{Name: StageTranslation, Skipped: true})
	}

	o.stage(ctx, &res, StageShadow, func(ctx context.Context) error {
		res.Shadow = o.matcher.AssessFor(req.Message, st.profile)
		return nil
	})

	o.stage(ctx, &res, StageSynthesis, func(ctx context.Context) error {
		text, overlap := o.synthesize(st, &res)
		res.Report.ThematicOverlap = overlap
		res.EnhancedText = text
		res.Enhanced = text != req.BaseResponse
		return nil
	})
	if !strings.HasPrefix(res.EnhancedText, req.BaseResponse) {
		res.EnhancedText = req.BaseResponse
		res.Enhanced = false
	}

	o.stage(ctx, &res, StageFinalize, func(ctx context.Context) error {
		o.finalize(st, &res)
		return nil
	})

	o.recordOutcome(st, res)

	o.logger.Debug("enhancement complete",
		zap.String("request_id", req.RequestID),
		zap.Bool("enhanced", res.Enhanced),
		zap.String("tradition", res.Tradition),
		zap.String("profile_source", res.Report.ProfileSource))
	return res
}

// SelfTest runs a pipeline pass that is not recorded and checks the base
// response survives.
func (o *Orchestrator) SelfTest(ctx context.Context) error {
	const base = "self-test response"
	res := o.enhance(ctx, model.EnhancementRequest{
		RequestID:    "self-test",
		Message:      "self-test",
		BaseResponse: base,
		Concept:      "water",
	}, false)
	if !res.BaseResponsePreserved || !strings.HasPrefix(res.EnhancedText, base) {
		return fmt.Errorf("base response not preserved")
	}
	for _, s := range res.Report.Stages {
		if s.Error != "" {
			return fmt.Errorf("stage %s: %s", s.Name, s.Error)
		}
	}
	return nil
}

// recordOutcome writes the run to the recorder when the requester is known.
// Recorder failures are logged and never change the result.
func (o *Orchestrator) recordOutcome(st *run, res model.EnhancementResult) {
	requester := st.req.RequesterID
	if requester == "" {
		requester = st.profile.RequesterID
	}
	if !st.record || o.recorder == nil || requester == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("enhancement recorder panicked",
				zap.String("request_id", res.RequestID),
				zap.Any("panic", r))
		}
	}()
	if err := o.recorder.RecordEnhancement(requester, res, o.evaluator.Registry().Hash()); err != nil {
		o.logger.Warn("failed to record enhancement",
			zap.String("request_id", res.RequestID),
			zap.String("requester_id", requester),
			zap.Error(err))
	}
}

func fallbackProfile() model.CulturalProfile {
	return model.CulturalProfile{
		PrimaryCulture:     model.UniversalCulture,
		CulturalIdentities: []string{model.UniversalCulture},
	}
}

type lookupResult struct {
	profile model.CulturalProfile
	err     error
}

// resolveProfile prefers the request's profile, then the provider, then
// detection on the message. Provider failures and timeouts fall back.
// The declared profile is nil unless the request or provider supplied one.
func (o *Orchestrator) resolveProfile(ctx context.Context, req model.EnhancementRequest) (model.CulturalProfile, *model.CulturalProfile, string) {
	if req.Profile != nil {
		return o.detector.Detect(req.Message, req.Profile), req.Profile, SourceRequest
	}
	if o.profiles == nil || req.RequesterID == "" {
		return o.detector.Detect(req.Message, nil), nil, SourceDetected
	}

	lctx, cancel := context.WithTimeout(ctx, o.cfg.ProfileTimeout)
	defer cancel()

	ch := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- lookupResult{err: fmt.Errorf("profile provider panic: %v", r)}
			}
		}()
		p, err := o.profiles.Lookup(lctx, req.RequesterID)
		ch <- lookupResult{profile: p, err: err}
	}()

	var got lookupResult
	select {
	case got = <-ch:
	case <-lctx.Done():
		got.err = lctx.Err()
	}

	switch {
	case got.err == nil:
		return o.detector.Detect(req.Message, &got.profile), &got.profile, SourceProvider
	case errors.Is(got.err, profile.ErrNotFound):
		return o.detector.Detect(req.Message, nil), nil, SourceDetected
	default:
		o.logger.Warn("profile lookup failed, using detected profile",
			zap.String("request_id", req.RequestID),
			zap.String("requester_id", req.RequesterID),
			zap.Error(got.err))
		return o.detector.Detect(req.Message, nil), nil, SourceFallback
	}
}

// implicated returns the traditions to evaluate: the request's list, or every
// tradition expressing the concept. The profile's primary culture goes first.
func (o *Orchestrator) implicated(req model.EnhancementRequest, p model.CulturalProfile) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, id := range req.Traditions {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = o.translator.TraditionsFor(req.Concept)
	}
	for i, id := range ids {
		if id == p.PrimaryCulture && i > 0 {
			out := append([]string{id}, ids[:i]...)
			return append(out, ids[i+1:]...)
		}
	}
	return ids
}

// background is the membership evidence handed to the evaluator. Only a
// declared profile counts; cultures detected in the message never do.
func background(declared *model.CulturalProfile) string {
	if declared == nil {
		return ""
	}
	parts := append([]string{declared.PrimaryCulture}, declared.CulturalIdentities...)
	return strings.Join(parts, " ")
}

// evaluateAll fans out one evaluation per tradition. Results keep the
// implicated order regardless of completion order.
func (o *Orchestrator) evaluateAll(ctx context.Context, st *run, res *model.EnhancementResult) error {
	st.traditions = o.implicated(st.req, st.profile)
	intention := st.req.Intention
	if intention == "" {
		intention = o.cfg.DefaultIntention
	}
	bg := background(st.declared)

	decisions := make([]model.PermissionDecision, len(st.traditions))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range st.traditions {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("evaluate %s: panic: %v", id, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = o.evaluator.Evaluate(model.WisdomRequest{
				TraditionID:         id,
				RequesterBackground: bg,
				IntentionForUse:     intention,
				CommunityConsent:    st.req.CommunityConsent,
				ElderPermission:     st.req.ElderPermission,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st.decisions = make(map[string]model.PermissionDecision, len(decisions))
	for _, d := range decisions {
		st.decisions[d.TraditionID] = d
	}
	res.Decisions = decisions
	if len(decisions) > 0 {
		res.Permission = decisions[0]
	}

	if st.record && o.recorder != nil {
		hash := o.evaluator.Registry().Hash()
		for _, d := range decisions {
			if err := o.recorder.RecordDecision(st.req.RequestID, d, hash); err != nil {
				o.logger.Warn("failed to record decision",
					zap.String("request_id", st.req.RequestID),
					zap.String("tradition", d.TraditionID),
					zap.Error(err))
			}
		}
	}
	return nil
}

func anyPermitted(ds []model.PermissionDecision) bool {
	for _, d := range ds {
		if d.Permitted {
			return true
		}
	}
	return false
}

// translateAll translates the concept for every permitted tradition. The
// first one with an expression becomes the primary translation.
func (o *Orchestrator) translateAll(st *run, res *model.EnhancementResult) {
	for _, id := range st.traditions {
		if !st.decisions[id].Permitted {
			continue
		}
		t := o.translator.Translate(st.req.Concept, id)
		if t.Expression == nil {
			continue
		}
		st.translations = append(st.translations, t)
	}
	if len(st.translations) == 0 {
		return
	}
	primary := st.translations[0]
	res.Tradition = primary.TraditionID
	res.Translation = primary.Expression.Clone()
	res.NearestAnalogue = primary.NearestAnalogue
	res.Permission = st.decisions[primary.TraditionID]
}

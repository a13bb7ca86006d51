package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/audit"
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the wisdom_evaluate tool.
type EvaluateInput struct {
	Tradition        string `json:"tradition" jsonschema:"tradition id (e.g. celtic, lakota)"`
	Background       string `json:"background,omitempty" jsonschema:"requester's cultural background in their own words"`
	Intention        string `json:"intention,omitempty" jsonschema:"intended use of the knowledge"`
	CommunityConsent bool   `json:"community_consent,omitempty" jsonschema:"community consent has been obtained"`
	ElderPermission  bool   `json:"elder_permission,omitempty" jsonschema:"elder permission has been obtained"`
}

// EvaluateOutput contains the decision and the evidence it was judged on.
type EvaluateOutput struct {
	Decision         model.PermissionDecision `json:"decision"`
	RequestID        string `json:"request_id"`
	Evidence         string `json:"evidence"`
	RequiredEvidence string `json:"required_evidence,omitempty"`
}

// SharingInput defines parameters for the wisdom_validate_sharing tool.
type SharingInput struct {
	Tradition string `json:"tradition" jsonschema:"tradition id"`
	Content   string `json:"content" jsonschema:"content about to be shared"`
	Intention string `json:"intention,omitempty" jsonschema:"intention behind sharing"`
}

// TranslateInput defines parameters for the wisdom_translate tool.
type TranslateInput struct {
	Concept   string `json:"concept" jsonschema:"universal concept"`
	Tradition string `json:"tradition,omitempty" jsonschema:"tradition id, omit to list traditions with an expression"`
}

// TranslateOutput contains one translation or the traditions carrying the concept.
type TranslateOutput struct {
	Translation *archetype.Translation `json:"translation,omitempty"`
	Traditions  []string               `json:"traditions,omitempty"`
}

// AssessInput defines parameters for the wisdom_assess tool.
type AssessInput struct {
	Text    string `json:"text" jsonschema:"text to scan for shadow triggers"`
	Culture string `json:"culture,omitempty" jsonschema:"primary culture, omit to detect from text"`
}

// AssessOutput contains the assessment; Assessment is nil when nothing matched.
type AssessOutput struct {
	Detected   bool                    `json:"detected"`
	Assessment *model.ShadowAssessment `json:"assessment,omitempty"`
	Readiness  float64                 `json:"readiness"`
	Culture    string                  `json:"culture"`
}

// EnhanceInput defines parameters for the wisdom_enhance tool.
type EnhanceInput struct {
	Message          string   `json:"message" jsonschema:"requester's message"`
	BaseResponse     string   `json:"base_response" jsonschema:"response to enhance"`
	Concept          string   `json:"concept" jsonschema:"universal concept to draw on"`
	RequesterID      string   `json:"requester_id,omitempty" jsonschema:"requester id for profile lookup"`
	Traditions       []string `json:"traditions,omitempty" jsonschema:"traditions to consider, omit to use all that carry the concept"`
	Intention        string   `json:"intention,omitempty" jsonschema:"intended use"`
	CommunityConsent bool     `json:"community_consent,omitempty" jsonschema:"community consent has been obtained"`
	ElderPermission  bool     `json:"elder_permission,omitempty" jsonschema:"elder permission has been obtained"`
}

// MetricsInput defines parameters for the wisdom_metrics tool.
type MetricsInput struct {
	RequesterID string `json:"requester_id,omitempty" jsonschema:"requester id, omit for every requester"`
}

// MetricsOutput lists per-requester enhancement metrics.
type MetricsOutput struct {
	Requesters []audit.RequesterMetrics `json:"requesters"`
}

// HealthInput is empty; no parameters needed.
type HealthInput struct{}

// HealthOutput is the health report with timestamps rendered as RFC 3339.
type HealthOutput struct {
	Overall            string         `json:"overall"`
	Modules            []ModuleHealth `json:"modules"`
	Capabilities       []string       `json:"capabilities,omitempty"`
	RecommendedActions []string       `json:"recommended_actions"`
	CheckedAt          string         `json:"checked_at"`
}

// ModuleHealth describes one module in HealthOutput.
type ModuleHealth struct {
	Name         string   `json:"name"`
	State        string   `json:"state"`
	Dependencies []string `json:"dependencies,omitempty"`
	LastUpdated  string   `json:"last_updated,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, EvaluateOutput, error) {
	c, err := s.components()
	if err != nil {
		return nil, EvaluateOutput{}, err
	}

	wr := model.WisdomRequest{
		TraditionID:         input.Tradition,
		RequesterBackground: input.Background,
		IntentionForUse:     input.Intention,
		CommunityConsent:    input.CommunityConsent,
		ElderPermission:     input.ElderPermission,
	}
	d := c.Evaluator.Evaluate(wr)
	out := EvaluateOutput{
		Decision:  d,
		RequestID: uuid.NewString(),
		Evidence:  permission.EvidenceLabel(c.Evaluator.EvidenceFor(wr)),
	}
	if d.Level != "" {
		out.RequiredEvidence = permission.RequiredLabel(d.Level)
	}

	if log := s.app.AuditLog(); log != nil {
		if err := log.RecordDecision(out.RequestID, d, c.Registry.Hash()); err != nil {
			s.logger.Warn("audit write failed", zap.Error(err))
		}
	}
	return nil, out, nil
}

func (s *Server) handleValidateSharing(ctx context.Context, req *mcpsdk.CallToolRequest, input SharingInput) (*mcpsdk.CallToolResult, permission.SharingCheck, error) {
	c, err := s.components()
	if err != nil {
		return nil, permission.SharingCheck{}, err
	}
	check := c.Evaluator.ValidateSharing(input.Tradition, input.Content, input.Intention)
	if log := s.app.AuditLog(); log != nil {
		if err := log.RecordSharing(uuid.NewString(), input.Tradition, check.Valid, check.Matched, c.Registry.Hash()); err != nil {
			s.logger.Warn("audit write failed", zap.Error(err))
		}
	}
	return nil, check, nil
}

func (s *Server) handleTranslate(ctx context.Context, req *mcpsdk.CallToolRequest, input TranslateInput) (*mcpsdk.CallToolResult, TranslateOutput, error) {
	c, err := s.components()
	if err != nil {
		return nil, TranslateOutput{}, err
	}
	if input.Tradition == "" {
		return nil, TranslateOutput{Traditions: c.Translator.TraditionsFor(input.Concept)}, nil
	}
	tr := c.Translator.Translate(input.Concept, input.Tradition)
	return nil, TranslateOutput{Translation: &tr}, nil
}

func (s *Server) handleAssess(ctx context.Context, req *mcpsdk.CallToolRequest, input AssessInput) (*mcpsdk.CallToolResult, AssessOutput, error) {
	c, err := s.components()
	if err != nil {
		return nil, AssessOutput{}, err
	}

	var hint *model.CulturalProfile
	if input.Culture != "" {
		hint = &model.CulturalProfile{PrimaryCulture: input.Culture}
	}
	p := c.Detector.Detect(input.Text, hint)
	a := c.Matcher.AssessFor(input.Text, p)
	return nil, AssessOutput{
		Detected:   a != nil,
		Assessment: a,
		Readiness:  c.Matcher.Readiness(input.Text),
		Culture:    p.PrimaryCulture,
	}, nil
}

func (s *Server) handleEnhance(ctx context.Context, req *mcpsdk.CallToolRequest, input EnhanceInput) (*mcpsdk.CallToolResult, model.EnhancementResult, error) {
	c, err := s.components()
	if err != nil {
		return nil, model.EnhancementResult{}, err
	}
	res := c.Orchestrator.Enhance(ctx, model.EnhancementRequest{
		RequesterID:      input.RequesterID,
		Message:          input.Message,
		BaseResponse:     input.BaseResponse,
		Concept:          input.Concept,
		Traditions:       input.Traditions,
		Intention:        input.Intention,
		CommunityConsent: input.CommunityConsent,
		ElderPermission:  input.ElderPermission,
	})
	return nil, res, nil
}

func (s *Server) handleMetrics(ctx context.Context, req *mcpsdk.CallToolRequest, input MetricsInput) (*mcpsdk.CallToolResult, MetricsOutput, error) {
	log := s.app.AuditLog()
	if log == nil {
		return nil, MetricsOutput{}, ErrNoAuditLog
	}
	ms, err := audit.Metrics(log.Path(), input.RequesterID)
	if err != nil {
		return nil, MetricsOutput{}, err
	}
	return nil, MetricsOutput{Requesters: ms}, nil
}

func (s *Server) handleHealth(ctx context.Context, req *mcpsdk.CallToolRequest, input HealthInput) (*mcpsdk.CallToolResult, HealthOutput, error) {
	report := s.app.Health()
	out := HealthOutput{
		Overall:            string(report.Overall),
		Modules:            make([]ModuleHealth, len(report.Modules)),
		Capabilities:       report.Capabilities,
		RecommendedActions: report.RecommendedActions,
		CheckedAt:          report.CheckedAt.Format(time.RFC3339),
	}
	for i, m := range report.Modules {
		mh := ModuleHealth{
			Name:         m.Name,
			State:        string(m.State),
			Dependencies: m.Dependencies,
			Error:        m.Error,
		}
		if !m.LastUpdated.IsZero() {
			mh.LastUpdated = m.LastUpdated.Format(time.RFC3339)
		}
		out.Modules[i] = mh
	}
	if report.Overall == model.Critical {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

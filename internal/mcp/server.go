package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/app"
	"github.com/ppiankov/wisdomgate/internal/logging"
)

// ErrNotReady is returned by tools called before the components initialized.
var ErrNotReady = errors.New("wisdomgate components are not initialized")

// ErrNoAuditLog is returned by tools that read the audit log when audit.log is unset.
var ErrNoAuditLog = errors.New("audit.log is not configured")

// Server wraps the MCP SDK server around an initialized app.
type Server struct {
	mcpServer *mcpsdk.Server
	app       *app.App
	logger    *zap.Logger
}

// New creates an MCP server exposing the app's operations as tools.
func New(a *app.App, version string, logger *zap.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{app: a, logger: logging.OrNop(logger)}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "wisdomgate",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) components() (*app.Components, error) {
	c := s.app.Components()
	if c == nil {
		return nil, ErrNotReady
	}
	return c, nil
}

// registerTools adds all wisdomgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_evaluate",
		Description: "Decide whether a requester may draw on a tradition's knowledge. Returns permit or deny with conditions, attribution and reciprocity guidance.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_validate_sharing",
		Description: "Check content and intention against a tradition's inappropriate contexts before sharing it.",
	}, s.handleValidateSharing)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_translate",
		Description: "Translate a universal concept (water, fire, earth, air, transformation) into a tradition's expression.",
	}, s.handleTranslate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_assess",
		Description: "Detect cultural shadow triggers in text and return severity, readiness and healing guidance.",
	}, s.handleAssess)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_enhance",
		Description: "Enhance a base response with permitted cultural wisdom. The base response is always preserved as a prefix.",
	}, s.handleEnhance)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_metrics",
		Description: "Per-requester counts of enhancements applied, protocols respected and cross-cultural insights, read from the audit log.",
	}, s.handleMetrics)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wisdom_health",
		Description: "Report module lifecycle states, overall health and recommended actions.",
	}, s.handleHealth)
}

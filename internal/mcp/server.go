// Package mcp exposes the assessment service as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/service"
)

// Tool names
const (
	ToolCalculate = "calculate_biological_age"
	ToolHistory   = "get_assessment_history"
	ToolTrend     = "get_health_trend"
	ToolCatalog   = "get_metric_catalog"
)

// Server is the MCP server. Every tool acts on behalf of a single owner, the
// local user of the process.
type Server struct {
	mcpServer   *mcp.Server
	assessments *service.AssessmentService
	trends      *service.TrendService
	ownerID     string
	logger      *logrus.Logger
	now         func() time.Time
}

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultServerInfo identifies the server to clients.
var DefaultServerInfo = ServerInfo{Name: "bioage-mcp-server", Version: "v1.0.0"}

// NewServer creates a new MCP server instance
func NewServer(assessments *service.AssessmentService, trends *service.TrendService, ownerID string, logger *logrus.Logger) (*Server, error) {
	if assessments == nil || trends == nil {
		return nil, fmt.Errorf("assessment and trend services are required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    DefaultServerInfo.Name,
		Version: DefaultServerInfo.Version,
	}, nil)

	server := &Server{
		mcpServer:   mcpServer,
		assessments: assessments,
		trends:      trends,
		ownerID:     ownerID,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	server.registerTools()

	return server, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves MCP over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("owner_id", s.ownerID).Info("Starting bio-age MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolCalculate,
		Description: "Calculate biological age from bloodwork, lifestyle and vital sign observations. " +
			"Scores each category in [0,1], blends them, derives a health label and recommendations, " +
			"and records the result in the assessment history.",
	}, s.handleCalculate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolHistory,
		Description: "List previous assessments, most recent first.",
	}, s.handleHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolTrend,
		Description: "Summarize how biological age changed over the last 3m, 6m, 1y or all assessments.",
	}, s.handleTrend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCatalog,
		Description: "Describe the metrics the calculator understands: ids, units, normal ranges and weights.",
	}, s.handleCatalog)

	s.logger.WithField("tool_count", 4).Debug("Registered MCP tools")
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/scan"
	"github.com/starford/dagaz/internal/store"
)

// StatsSource exposes per-provider OCR aggregates; the orchestrator
// implements it.
type StatsSource interface {
	Stats() []ocr.ProviderStats
}

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *scan.Service
	stats  StatsSource
	images imagestore.Store
}

// New creates a new MCP server with all Dagaz tools registered.
func New(svc *scan.Service, stats StatsSource, images imagestore.Store) *Server {
	s := &Server{svc: svc, stats: stats, images: images}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("parse_text",
		mcp.WithDescription("Parse bullet journal text into structured entries and store them. "+
			"Understands the standard bullet symbols; read the dagaz://bullet-legend resource "+
			"or the get_bullet_legend tool for the full notation."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Raw journal text, one entry per line")),
	), s.parseText)

	s.mcp.AddTool(mcp.NewTool("scan_image",
		mcp.WithDescription("Run OCR over a journal page image and store the extracted entries. "+
			"Accepts a base64 data URI or an http(s) URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the page image")),
		mcp.WithString("provider", mcp.Description("Optional provider id to try first (vision, ocrspace, claude, tesseract)")),
	), s.scanImage)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List stored journal entries with optional date/type/status filters."),
		mcp.WithString("date", mcp.Description("Filter by collection date (YYYY-MM-DD)")),
		mcp.WithString("type", mcp.Description("Filter by entry type (task, event, note, inspiration, research, memory)")),
		mcp.WithString("status", mcp.Description("Filter by status (incomplete, complete, migrated, scheduled, cancelled)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("journal_stats",
		mcp.WithDescription("Entry counts per type across the whole journal."),
	), s.journalStats)

	s.mcp.AddTool(mcp.NewTool("ocr_health",
		mcp.WithDescription("Per-provider OCR health and success rates."),
	), s.ocrHealth)

	s.mcp.AddTool(mcp.NewTool("get_bullet_legend",
		mcp.WithDescription("Returns the bullet journal notation legend. "+
			"Call this before composing text for parse_text."),
	), s.getBulletLegend)

	// Resource: bullet notation legend.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://bullet-legend", "Bullet Notation Legend",
			mcp.WithResourceDescription("The bullet journal symbol taxonomy the parser understands."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBulletLegendResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) parseText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.ParseText(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := store.Filter{Limit: 100, Date: req.GetString("date", "")}
	if v := req.GetString("type", ""); v != "" {
		if !models.ValidType(models.EntryType(v)) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid type: %s", v)), nil
		}
		f.Type = models.EntryType(v)
	}
	if v := req.GetString("status", ""); v != "" {
		if !models.ValidStatus(models.EntryStatus(v)) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", v)), nil
		}
		f.Status = models.EntryStatus(v)
	}

	entries, total, err := s.svc.ListEntries(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"entries": entries,
		"total":   total,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) journalStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.svc.CountByType(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(counts, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ocrHealth(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.stats.Stats(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBulletLegend(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BulletLegend), nil
}

func (s *Server) readBulletLegendResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://bullet-legend",
			MIMEType: "text/markdown",
			Text:     BulletLegend,
		},
	}, nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the PromptHub catalogs to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/prompthub/internal/apperr"
	"github.com/starford/prompthub/internal/filter"
	"github.com/starford/prompthub/internal/hubservice"
	"github.com/starford/prompthub/internal/markdown"
	"github.com/starford/prompthub/internal/models"
)

// FormatResourceURI is the URI of the prompt format contract resource.
const FormatResourceURI = "prompthub://prompt-format"

// defaultTagColor is used for tags created implicitly by create_prompt.
const defaultTagColor = "blue"

// Server wraps the MCP server with PromptHub tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *hubservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all PromptHub tools registered.
func New(svc *hubservice.Service, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"PromptHub",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_prompts",
		mcp.WithDescription("Search prompts by text in title, summary and content. "+
			"Optionally narrow to prompts carrying all given tags or linked to a model type."),
		mcp.WithString("query", mcp.Description("Text to look for (empty for all)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names; a prompt must carry all of them")),
		mcp.WithString("modelType", mcp.Description("One of chat, code, image, video, voice")),
	), s.searchPrompts)

	s.mcp.AddTool(mcp.NewTool("read_prompt",
		mcp.WithDescription("Read a prompt with its content, tags, linked model and media."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id (UUID)")),
	), s.readPrompt)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the model catalog, optionally filtered by name, type or vendor."),
		mcp.WithString("search", mcp.Description("Name substring")),
		mcp.WithString("type", mcp.Description("One of chat, code, image, video, voice")),
		mcp.WithString("vendor", mcp.Description("Built-in vendor name or a custom vendor name")),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with their colors."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("create_prompt",
		mcp.WithDescription("Create a new prompt. Content SHOULD follow the prompt format "+
			"contract; read it first via the get_prompt_contract tool or the "+FormatResourceURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
		mcp.WithString("title", mcp.Description("Title; derived from the content when empty")),
		mcp.WithString("summary", mcp.Description("One-line summary; derived from the content when empty")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names, created when missing")),
		mcp.WithString("sourceURL", mcp.Description("Where the prompt came from")),
		mcp.WithString("modelName", mcp.Description("Name of a catalog model to link")),
	), s.createPrompt)

	s.mcp.AddTool(mcp.NewTool("get_prompt_contract",
		mcp.WithDescription("Returns the PromptHub prompt format contract. "+
			"Call this before creating prompts to ensure correct structure."),
	), s.getPromptContract)

	s.mcp.AddTool(mcp.NewTool("attach_media",
		mcp.WithDescription("Download an image or video and attach it to a prompt. "+
			"Accepts an http(s) URL or a base64 data URI."),
		mcp.WithString("promptId", mcp.Required(), mcp.Description("Prompt id (UUID)")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data>")),
		mcp.WithString("type", mcp.Description("image or video; detected from the content when empty")),
	), s.attachMedia)

	// Resource: prompt format contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatResourceURI, "Prompt Format Contract",
			mcp.WithResourceDescription("How prompt content passed to create_prompt should be structured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

// optString returns an optional string argument, or "" when absent.
func optString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func splitNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

type promptSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags"`
	Model     string    `json:"model,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) searchPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := filter.PromptQuery{Search: optString(req, "query")}

	var ids []uuid.UUID
	for _, name := range splitNames(optString(req, "tags")) {
		tag, ok := s.findTag(name)
		if !ok {
			// No prompt can carry an unknown tag.
			return jsonResult([]promptSummary{}), nil
		}
		ids = append(ids, tag.ID)
	}
	q.SelectedTags = filter.TagSet(ids)

	if mt := optString(req, "modelType"); mt != "" {
		q.ModelType = models.ModelType(mt)
		if !q.ModelType.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown model type: %s", mt)), nil
		}
	}

	list := s.svc.ListPrompts(ctx, q)
	out := make([]promptSummary, 0, len(list))
	for _, p := range list {
		d, err := s.svc.Prompt(p.ID)
		if err != nil {
			continue
		}
		item := promptSummary{ID: p.ID, Title: p.Title, Summary: p.Summary, Tags: tagNames(d.TagList), UpdatedAt: p.UpdatedAt}
		if d.Model != nil {
			item.Model = d.Model.Name
		}
		out = append(out, item)
	}
	return jsonResult(out), nil
}

func tagNames(list []models.Tag) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.Name)
	}
	return out
}

func (s *Server) findTag(name string) (models.Tag, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, t := range s.svc.Tags("") {
		if strings.ToLower(t.Name) == want {
			return t, true
		}
	}
	return models.Tag{}, false
}

func (s *Server) readPrompt(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid id: %s", raw)), nil
	}
	d, err := s.svc.Prompt(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}
	return jsonResult(d), nil
}

func (s *Server) listModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := models.NewModelFilter()
	if t := optString(req, "type"); t != "" {
		mt := models.ModelType(t)
		if !mt.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown model type: %s", t)), nil
		}
		f.SelectedTypes[mt] = struct{}{}
	}
	if v := optString(req, "vendor"); v != "" {
		if mv := models.ModelVendor(v); mv.Valid() && mv != models.VendorCustom {
			f.SelectedVendors[mv] = struct{}{}
		} else {
			f.SelectedCustomVendorNames[v] = struct{}{}
		}
	}
	return jsonResult(filter.Models(s.svc.Models(), f, optString(req, "search"))), nil
}

func (s *Server) listTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Tags("")), nil
}

func (s *Server) createPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parsed := markdown.Parse(content)
	in := hubservice.PromptInput{
		Title:     optString(req, "title"),
		Summary:   optString(req, "summary"),
		Content:   content,
		SourceURL: optString(req, "sourceURL"),
		Tags:      []uuid.UUID{},
	}
	if in.Title == "" {
		in.Title = parsed.Title
	}
	if in.Summary == "" {
		in.Summary = parsed.Summary
	}

	if name := optString(req, "modelName"); name != "" {
		m, ok := s.findModel(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown model: %s", name)), nil
		}
		in.ModelID = &m.ID
	}

	for _, name := range splitNames(optString(req, "tags")) {
		tag, _, err := s.svc.CreateTag(ctx, name, defaultTagColor)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.Tags = append(in.Tags, tag.ID)
	}

	d, err := s.svc.SavePrompt(ctx, uuid.New(), in, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", d.ID, d.Title)), nil
}

func (s *Server) findModel(name string) (models.ModelConfig, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, m := range s.svc.Models() {
		if strings.ToLower(m.Name) == want {
			return m, true
		}
	}
	return models.ModelConfig{}, false
}

func (s *Server) getPromptContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatResourceURI,
			MIMEType: "text/markdown",
			Text:     PromptFormatContract,
		},
	}, nil
}

// toolError turns a service error into a tool error message.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

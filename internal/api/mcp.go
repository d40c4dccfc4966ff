package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/storage"
)

// recentLimit caps how many records the MCP resources return.
const recentLimit = 20

// NewMCPServer creates an MCP server exposing the assistant as tools and the
// moderation and curation logs as resources.
func NewMCPServer(eng *assistant.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"binbuddy",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("binbuddy: customer assistant for smart waste bins. Ask questions, fetch greetings, and inspect how a message is scored."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a message to the assistant and return its reply with the outcome that produced it."),
			mcp.WithString("message", mcp.Description("The user message"), mcp.Required()),
			mcp.WithString("environment", mcp.Description("public (default) or operational")),
			mcp.WithString("user_id", mcp.Description("Stable user identifier; empty disables moderation tracking")),
			mcp.WithString("user_name", mcp.Description("Display name used in greetings")),
		),
		mcpAsk(eng),
	)

	s.AddTool(
		mcp.NewTool("greeting",
			mcp.WithDescription("Return an opening greeting for a new conversation."),
			mcp.WithString("environment", mcp.Description("public (default) or operational")),
			mcp.WithString("name", mcp.Description("Optional user name")),
		),
		mcpGreeting(eng),
	)

	s.AddTool(
		mcp.NewTool("explain",
			mcp.WithDescription("Show how a message is normalized and scored against the knowledge base, without side effects."),
			mcp.WithString("message", mcp.Description("The message to explain"), mcp.Required()),
			mcp.WithString("environment", mcp.Description("public (default) or operational")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of candidates (default 5)")),
		),
		mcpExplain(eng),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"binbuddy://incidents",
			"Moderation Incidents",
			mcp.WithResourceDescription("Most recent warnings and blocks, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceIncidents(eng),
	)

	s.AddResource(
		mcp.NewResource(
			"binbuddy://unanswered",
			"Unanswered Questions",
			mcp.WithResourceDescription("Most recent questions nothing could answer, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceUnanswered(eng),
	)

	return s
}

func mcpAsk(eng *assistant.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}
		env, err := knowledge.ParseEnvironment(req.GetString("environment", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		reply := eng.Respond(ctx, message, assistant.ConversationContext{
			Environment: env,
			UserID:      req.GetString("user_id", ""),
			UserName:    req.GetString("user_name", ""),
		})

		b, err := json.Marshal(reply)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reply: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGreeting(eng *assistant.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env, err := knowledge.ParseEnvironment(req.GetString("environment", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(eng.Greeting(env, req.GetString("name", ""))), nil
	}
}

func mcpExplain(eng *assistant.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}
		env, err := knowledge.ParseEnvironment(req.GetString("environment", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 20 {
			limit = 20
		}

		b, err := json.Marshal(eng.Explain(message, env, limit))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal explanation: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceIncidents(eng *assistant.Engine) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := eng.Store().Incidents(ctx, storage.IncidentFilter{Limit: recentLimit})
		if err != nil {
			return nil, fmt.Errorf("failed to list incidents: %w", err)
		}
		return jsonResource(req.Params.URI, records)
	}
}

func mcpResourceUnanswered(eng *assistant.Engine) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		questions, err := eng.Store().Unanswered(ctx, recentLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list unanswered questions: %w", err)
		}

		type questionSummary struct {
			ID          string `json:"id"`
			CreatedAt   string `json:"created_at"`
			Environment string `json:"environment"`
			Text        string `json:"text"`
		}

		summaries := make([]questionSummary, len(questions))
		for i, q := range questions {
			text := q.Text
			if utf8.RuneCountInString(text) > 200 {
				runes := []rune(text)
				text = string(runes[:200]) + "..."
			}
			summaries[i] = questionSummary{
				ID:          q.ID,
				CreatedAt:   q.Timestamp.Format(time.RFC3339),
				Environment: q.Environment,
				Text:        text,
			}
		}
		return jsonResource(req.Params.URI, summaries)
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package deepsearch

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/fouille/kit"
)

// RegisterMCP registers the deep search tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerFeedbackTool(srv)
	s.registerGetPrefsTool(srv)
	s.registerUpdatePrefsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// --- deep search ---

type searchReq struct {
	Query          string   `json:"q"`
	MaxResults     *int     `json:"max_results"`
	Follow         bool     `json:"follow"`
	MaxPerDomain   *int     `json:"max_per_domain"`
	DelayPerDomain *float64 `json:"delay_per_domain"`
	Personalize    *bool    `json:"personalize"`
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "fouille_deep_search",
		Description: "Search the web, optionally follow each result to extract page content, and rerank by learned preferences.",
		InputSchema: inputSchema(map[string]any{
			"q":                map[string]any{"type": "string", "description": "Search query (min 2 characters)"},
			"max_results":      map[string]any{"type": "integer", "description": "Max results to request (1-200, default 50)"},
			"follow":           map[string]any{"type": "boolean", "description": "Fetch and extract each result page"},
			"max_per_domain":   map[string]any{"type": "integer", "description": "Follow cap per domain (1-50, default 5)"},
			"delay_per_domain": map[string]any{"type": "number", "description": "Seconds between fetches to one domain (0-10, default 1)"},
			"personalize":      map[string]any{"type": "boolean", "description": "Apply preference-based reranking (default true)"},
		}, []string{"q"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchReq)
		params := NewParams(r.Query)
		params.Follow = r.Follow
		if r.MaxResults != nil {
			params.MaxResults = *r.MaxResults
		}
		if r.MaxPerDomain != nil {
			params.MaxPerDomain = *r.MaxPerDomain
		}
		if r.DelayPerDomain != nil {
			params.DelayPerDomain = *r.DelayPerDomain
		}
		if r.Personalize != nil {
			params.Personalize = *r.Personalize
		}
		return s.DeepSearch(ctx, params)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r searchReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- feedback ---

type feedbackReq struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title"`
	Label  string `json:"label"`
}

func (s *Service) registerFeedbackTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "fouille_feedback",
		Description: "Record a like or dislike for a result URL; future searches rank its domain accordingly.",
		InputSchema: inputSchema(map[string]any{
			"url":    map[string]any{"type": "string", "description": "Result URL"},
			"domain": map[string]any{"type": "string", "description": "Result domain; derived from the URL when omitted"},
			"title":  map[string]any{"type": "string", "description": "Result title, kept with the log entry"},
			"label":  map[string]any{"type": "string", "enum": []string{"like", "dislike"}},
		}, []string{"url", "label"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*feedbackReq)
		if err := s.Feedback(ctx, r.URL, r.Domain, r.Title, r.Label); err != nil {
			return nil, err
		}
		return map[string]any{"status": "recorded"}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r feedbackReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- preferences ---

func (s *Service) registerGetPrefsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "fouille_get_prefs",
		Description: "Read the current ranking preferences.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Prefs(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerUpdatePrefsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "fouille_update_prefs",
		Description: "Update ranking preferences; only the provided fields change.",
		InputSchema: inputSchema(map[string]any{
			"preferred_domains":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"blocked_domains":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"preferred_keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"blocked_keywords":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"like_weight":        map[string]any{"type": "number"},
			"dislike_weight":     map[string]any{"type": "number"},
			"domain_boost":       map[string]any{"type": "number"},
			"keyword_boost":      map[string]any{"type": "number"},
			"strict_block":       map[string]any{"type": "boolean"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		patch := req.(*PreferencesPatch)
		return s.UpdatePrefs(ctx, *patch)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var patch PreferencesPatch
		if err := json.Unmarshal(req.Params.Arguments, &patch); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &patch}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

package deepsearch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "fouille-test", Version: "0.1.0"}

func mcpSession(t *testing.T, s *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError {
		var parts []string
		for _, c := range result.Content {
			if tc, ok := c.(*mcp.TextContent); ok {
				parts = append(parts, tc.Text)
			}
		}
		t.Fatalf("tool %s errored: %s", name, strings.Join(parts, " "))
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("tool %s: unexpected content %T", name, result.Content[0])
	}
	return tc.Text
}

// WHAT: the search tool runs a query end to end over MCP and returns
// the same response shape as HTTP.
// WHY: both transports must expose identical semantics.
func TestMCPDeepSearch(t *testing.T) {
	u := newTestUpstream(t)
	u.addHit("/one", "First")
	s := newTestService(t, u, Config{})
	session := mcpSession(t, s)

	out := mcpCallTool(t, session, "fouille_deep_search", map[string]any{"q": "golang"})
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Query != "golang" || len(resp.Results) != 1 || resp.Results[0].Title != "First" {
		t.Errorf("response = %+v", resp)
	}
	if !resp.Meta.Personalized {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

// WHAT: an invalid query surfaces as a tool error, not a transport
// failure.
// WHY: tool errors are how MCP clients see validation problems.
func TestMCPDeepSearchBadQuery(t *testing.T) {
	u := newTestUpstream(t)
	s := newTestService(t, u, Config{})
	session := mcpSession(t, s)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "fouille_deep_search",
		Arguments: map[string]any{"q": "x"},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for short query")
	}
}

// WHAT: feedback and prefs tools round-trip through MCP.
// WHY: the personalization loop must be drivable from an MCP client.
func TestMCPFeedbackAndPrefs(t *testing.T) {
	u := newTestUpstream(t)
	s := newTestService(t, u, Config{})
	session := mcpSession(t, s)

	mcpCallTool(t, session, "fouille_feedback", map[string]any{
		"url": "https://blog.test/post", "title": "A post", "label": "like",
	})

	out := mcpCallTool(t, session, "fouille_update_prefs", map[string]any{
		"preferred_domains": []string{"Blog.TEST"},
	})
	var prefs Preferences
	if err := json.Unmarshal([]byte(out), &prefs); err != nil {
		t.Fatalf("decode prefs: %v", err)
	}
	if len(prefs.PreferredDomains) != 1 || prefs.PreferredDomains[0] != "blog.test" {
		t.Errorf("prefs = %+v", prefs)
	}

	out = mcpCallTool(t, session, "fouille_get_prefs", nil)
	if !strings.Contains(out, "blog.test") {
		t.Errorf("get prefs = %s", out)
	}
}

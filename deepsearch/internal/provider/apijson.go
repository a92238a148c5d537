package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Config describes how to call and parse a JSON search API.
type Config struct {
	Method     string            `json:"method" yaml:"method"`           // default GET
	Headers    map[string]string `json:"headers" yaml:"headers"`         // ${ENV_VAR} expanded
	ResultPath string            `json:"result_path" yaml:"result_path"` // dot-notation: "web.results"
	Fields     map[string]string `json:"fields" yaml:"fields"`           // {"title":"title","text":"description","url":"url"}
}

// item is one raw result pulled out of a JSON response.
type item struct {
	Title string
	Text  string
	URL   string
}

const maxAPIBody = 10 * 1024 * 1024

// fetchJSON calls the API, walks ResultPath into the response, and
// maps each element's fields into items.
func fetchJSON(ctx context.Context, client *http.Client, apiURL string, cfg Config) ([]item, error) {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, os.Expand(v, os.Getenv))
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	elems, err := walkPath(raw, cfg.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("walk path %q: %w", cfg.ResultPath, err)
	}

	items := make([]item, 0, len(elems))
	for _, e := range elems {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, extractFields(obj, cfg.Fields))
	}
	return items, nil
}

// walkPath walks a dot-notation path into a decoded JSON value. An
// empty path requires the root itself to be an array.
func walkPath(v any, path string) ([]any, error) {
	if path == "" {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("root is not an array")
		}
		return arr, nil
	}

	current := v
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object at %q, got %T", part, current)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("key %q not found", part)
		}
	}

	arr, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("path %q is not an array", path)
	}
	return arr, nil
}

// extractFields maps configured field names into an item. With no
// mapping, the keys title/text/url are read directly.
func extractFields(obj map[string]any, fields map[string]string) item {
	var it item
	if fields == nil {
		it.Title = asString(obj["title"])
		it.Text = asString(obj["text"])
		it.URL = asString(obj["url"])
		return it
	}
	if f, ok := fields["title"]; ok {
		it.Title = asString(obj[f])
	}
	if f, ok := fields["text"]; ok {
		it.Text = asString(obj[f])
	}
	if f, ok := fields["url"]; ok {
		it.URL = asString(obj[f])
	}
	return it
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

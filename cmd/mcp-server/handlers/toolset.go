// Package handlers exposes the ColorMe Shop API as MCP tools.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/logging"
	"github.com/providentiaww/colorme-mcp/internal/metrics"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

var errNoSession = errors.New("no authenticated shop session")

// TokenSource resolves the shop access token for a call.
type TokenSource func(ctx context.Context) (string, error)

// SessionToken reads the token from the authenticated session properties.
func SessionToken(ctx context.Context) (string, error) {
	user, ok := auth.ExtractUserFromContext(ctx)
	if !ok || user.Props.AccessToken == "" {
		return "", errNoSession
	}
	return user.Props.AccessToken, nil
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		if token == "" {
			return "", errors.New("no access token configured")
		}
		return token, nil
	}
}

// Config configures a Toolset.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	ReadOnly   bool
	Token      TokenSource
	Metrics    *metrics.Tools
	Logger     *slog.Logger
}

// Toolset builds the tool catalog.
type Toolset struct {
	cfg   Config
	tools map[string]server.ServerTool
}

type toolFunc func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// NewToolset registers the read tools, and the write tools unless cfg.ReadOnly.
func NewToolset(cfg Config) *Toolset {
	if cfg.Token == nil {
		cfg.Token = SessionToken
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	t := &Toolset{cfg: cfg, tools: make(map[string]server.ServerTool)}

	t.add(shopTools(cfg.ReadOnly)...)
	t.add(productReadTools()...)
	t.add(saleReadTools()...)
	t.add(customerReadTools()...)
	t.add(catalogTools()...)
	t.add(couponTools()...)
	if !cfg.ReadOnly {
		t.add(productWriteTools()...)
		t.add(saleWriteTools()...)
		t.add(customerWriteTools()...)
	}
	return t
}

type toolDef struct {
	tool mcp.Tool
	fn   toolFunc
}

func (t *Toolset) add(defs ...toolDef) {
	for _, d := range defs {
		t.tools[d.tool.Name] = server.ServerTool{Tool: d.tool, Handler: t.wrap(d.tool.Name, d.fn)}
	}
}

// Tools returns the catalog sorted by name.
func (t *Toolset) Tools() []server.ServerTool {
	out := make([]server.ServerTool, 0, len(t.tools))
	for _, st := range t.tools {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool.Name < out[j].Tool.Name })
	return out
}

// Lookup finds a registered tool by name.
func (t *Toolset) Lookup(name string) (server.ServerTool, bool) {
	st, ok := t.tools[name]
	return st, ok
}

func (t *Toolset) wrap(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := t.cfg.Token(ctx)
		if err != nil {
			t.cfg.Metrics.Observe(name, true)
			return errorResult(err), nil
		}

		opts := []colorme.Option{colorme.WithTimeout(t.cfg.Timeout)}
		if t.cfg.HTTPClient != nil {
			opts = append(opts, colorme.WithHTTPClient(t.cfg.HTTPClient))
		}
		client := colorme.NewClient(t.cfg.BaseURL, token, opts...)

		result, err := fn(ctx, client, req)
		if err != nil {
			t.cfg.Metrics.Observe(name, true)
			t.cfg.Logger.Warn("tool call failed", "tool", name, "error", err)
			return errorResult(err), nil
		}
		t.cfg.Metrics.Observe(name, result.IsError)
		return result, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("error: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// fetch GETs path and returns the value under key.
func fetch[T any](ctx context.Context, c *colorme.Client, path string, params url.Values, key string) (*mcp.CallToolResult, error) {
	var env map[string]json.RawMessage
	if err := c.Get(ctx, path, params, &env); err != nil {
		return nil, err
	}
	raw, ok := env[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", key)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return jsonResult(v)
}

func pageParams(req mcp.CallToolRequest) url.Values {
	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset := max(req.GetInt("offset", 0), 0)
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}

func setStrings(params url.Values, req mcp.CallToolRequest, keys ...string) {
	for _, key := range keys {
		if v := req.GetString(key, ""); v != "" {
			params.Set(key, v)
		}
	}
}

func setBool(params url.Values, req mcp.CallToolRequest, key string) {
	if v, ok := req.GetArguments()[key].(bool); ok {
		params.Set(key, strconv.FormatBool(v))
	}
}

func requireObject(req mcp.CallToolRequest, key string) (map[string]any, error) {
	obj, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return obj, nil
}

func requireID(req mcp.CallToolRequest, key string) (int, error) {
	id, err := req.RequireInt(key)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return id, nil
}

func paginationOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Number of records (default 10, max 50)")),
		mcp.WithNumber("offset", mcp.Description("Start offset (default 0)")),
	}
}

func readTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description), mcp.WithReadOnlyHintAnnotation(true)}, opts...)
	return mcp.NewTool(name, opts...)
}

func writeTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description), mcp.WithReadOnlyHintAnnotation(false)}, opts...)
	return mcp.NewTool(name, opts...)
}

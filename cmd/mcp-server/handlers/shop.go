package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

// sessionInfo describes the connection without exposing credentials.
type sessionInfo struct {
	ShopID   string   `json:"shop_id,omitempty"`
	ShopName string   `json:"shop_name,omitempty"`
	ShopURL  string   `json:"shop_url,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	Scopes   []string `json:"scopes"`
	ReadOnly bool     `json:"read_only"`
	Mode     string   `json:"mode"`
}

func shopTools(readOnly bool) []toolDef {
	return []toolDef{
		{
			tool: readTool("get_shop", "Get the shop's basic information (name, URL, contract state)."),
			fn: func(ctx context.Context, c *colorme.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return fetch[models.Shop](ctx, c, "/shop.json", nil, "shop")
			},
		},
		{
			tool: readTool("get_session", "Show which shop this connection is authorized for, the granted scopes and whether write tools are enabled."),
			fn: func(ctx context.Context, _ *colorme.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				info := sessionInfo{Scopes: []string{}, ReadOnly: readOnly, Mode: "personal_token"}
				if user, ok := auth.ExtractUserFromContext(ctx); ok {
					info.Mode = "oauth"
					info.ShopID = user.Props.ShopID
					info.ShopName = user.Props.ShopName
					info.ShopURL = user.Props.ShopURL
					info.ClientID = user.ClientID
					info.Scopes = user.Props.Scopes
				}
				return jsonResult(info)
			},
		},
	}
}

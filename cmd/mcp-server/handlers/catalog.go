package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

// listTool builds a parameterless read tool returning the value under key.
func listTool[T any](name, description, path, key string) toolDef {
	return toolDef{
		tool: readTool(name, description),
		fn: func(ctx context.Context, c *colorme.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return fetch[T](ctx, c, path, nil, key)
		},
	}
}

func catalogTools() []toolDef {
	return []toolDef{
		listTool[[]models.Category]("list_categories", "List product categories and their hierarchy.", "/categories.json", "categories"),
		listTool[[]models.Group]("list_groups", "List product groups.", "/groups.json", "groups"),
		listTool[[]models.Delivery]("list_deliveries", "List delivery methods and charges.", "/deliveries.json", "deliveries"),
		listTool[[]models.Payment]("list_payments", "List available payment methods.", "/payments.json", "payments"),
		listTool[models.Gift]("get_gift_settings", "Get gift wrapping and noshi settings.", "/gift.json", "gift"),
	}
}

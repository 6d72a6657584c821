package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

var requiredCustomerFields = []string{"name", "email", "postal", "address", "tel"}

func customerReadTools() []toolDef {
	return []toolDef{
		{
			tool: readTool("list_customers", "List customers, searchable by name or email.",
				append(paginationOptions(),
					mcp.WithString("fields", mcp.Description("Comma-separated fields to return")),
					mcp.WithString("name", mcp.Description("Search by customer name")),
					mcp.WithString("email", mcp.Description("Search by email address")),
					mcp.WithBoolean("member", mcp.Description("Filter members or guests")),
				)...),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				params := pageParams(req)
				setStrings(params, req, "fields", "name", "email")
				setBool(params, req, "member")
				return fetch[[]models.Customer](ctx, c, "/customers.json", params, "customers")
			},
		},
		{
			tool: readTool("get_customer", "Get a customer by id.",
				mcp.WithNumber("customer_id", mcp.Required(), mcp.Description("Customer ID")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "customer_id")
				if err != nil {
					return nil, err
				}
				return fetch[models.Customer](ctx, c, fmt.Sprintf("/customers/%d.json", id), nil, "customer")
			},
		},
	}
}

func customerWriteTools() []toolDef {
	return []toolDef{
		{
			tool: writeTool("create_customer", "Register a new customer.",
				mcp.WithObject("customer", mcp.Required(), mcp.Description("Customer to create"),
					mcp.Properties(map[string]any{
						"name":          map[string]any{"type": "string"},
						"furigana":      map[string]any{"type": "string"},
						"email":         map[string]any{"type": "string"},
						"postal":        map[string]any{"type": "string"},
						"prefecture_id": map[string]any{"type": "number", "description": "Prefecture ID (1-47)"},
						"address":       map[string]any{"type": "string"},
						"tel":           map[string]any{"type": "string"},
						"tel2":          map[string]any{"type": "string"},
						"member":        map[string]any{"type": "boolean"},
						"mail_magazine": map[string]any{"type": "boolean"},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				customer, err := requireObject(req, "customer")
				if err != nil {
					return nil, err
				}
				for _, field := range requiredCustomerFields {
					if v, _ := customer[field].(string); v == "" {
						return nil, fmt.Errorf("customer.%s is required", field)
					}
				}
				pref, ok := customer["prefecture_id"].(float64)
				if !ok || pref < 1 || pref > 47 {
					return nil, fmt.Errorf("customer.prefecture_id must be between 1 and 47")
				}
				if err := c.Post(ctx, "/customers.json", map[string]any{"customer": customer}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Customer created."), nil
			},
		},
		{
			tool: writeTool("update_customer_points", "Add or subtract a customer's shop points.",
				mcp.WithNumber("customer_id", mcp.Required(), mcp.Description("Customer ID")),
				mcp.WithNumber("points", mcp.Required(), mcp.Description("Points delta; negative subtracts")),
				mcp.WithString("memo", mcp.Description("Reason for the change")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "customer_id")
				if err != nil {
					return nil, err
				}
				points, err := req.RequireInt("points")
				if err != nil {
					return nil, err
				}
				body := map[string]any{"points": points}
				if memo := req.GetString("memo", ""); memo != "" {
					body["memo"] = memo
				}
				if err := c.Post(ctx, fmt.Sprintf("/customers/%d/points.json", id), body, nil); err != nil {
					return nil, err
				}
				if points > 0 {
					return mcp.NewToolResultText(fmt.Sprintf("Added %d points.", points)), nil
				}
				return mcp.NewToolResultText(fmt.Sprintf("Subtracted %d points.", -points)), nil
			},
		},
	}
}

package handlers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

func saleReadTools() []toolDef {
	return []toolDef{
		{
			tool: readTool("list_sales", "List orders, filtered by period or status.",
				append(paginationOptions(),
					mcp.WithString("fields", mcp.Description("Comma-separated fields to return")),
					mcp.WithString("accepted_status", mcp.Description("Filter by acceptance status")),
					mcp.WithString("paid_status", mcp.Description("Filter by payment status")),
					mcp.WithString("delivered_status", mcp.Description("Filter by delivery status")),
					mcp.WithString("start_date", mcp.Description("Start date (YYYY-MM-DD)")),
					mcp.WithString("end_date", mcp.Description("End date (YYYY-MM-DD)")),
				)...),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				params := pageParams(req)
				setStrings(params, req, "fields", "accepted_status", "paid_status", "delivered_status", "start_date", "end_date")
				return fetch[[]models.Sale](ctx, c, "/sales.json", params, "sales")
			},
		},
		{
			tool: readTool("get_sale", "Get an order by id.",
				mcp.WithNumber("sale_id", mcp.Required(), mcp.Description("Order ID")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "sale_id")
				if err != nil {
					return nil, err
				}
				return fetch[models.Sale](ctx, c, fmt.Sprintf("/sales/%d.json", id), nil, "sale")
			},
		},
		{
			tool: readTool("get_sales_stats", "Get aggregated sales statistics for a period.",
				mcp.WithString("start_date", mcp.Description("Start date (YYYY-MM-DD)")),
				mcp.WithString("end_date", mcp.Description("End date (YYYY-MM-DD)")),
				mcp.WithString("unit", mcp.Enum("day", "month"), mcp.Description("Aggregation unit (default day)")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				unit := req.GetString("unit", "day")
				if unit != "day" && unit != "month" {
					return nil, fmt.Errorf("unit must be day or month")
				}
				params := url.Values{"unit": {unit}}
				setStrings(params, req, "start_date", "end_date")
				return fetch[[]models.SalesStat](ctx, c, "/sales/stat.json", params, "stats")
			},
		},
	}
}

func saleWriteTools() []toolDef {
	return []toolDef{
		{
			tool: writeTool("create_sale", "Create a new order.",
				mcp.WithObject("sale", mcp.Required(), mcp.Description("Order with details and delivery"),
					mcp.Properties(map[string]any{
						"customer_id": map[string]any{"type": "number"},
						"details": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"product_id":    map[string]any{"type": "number"},
									"product_num":   map[string]any{"type": "number"},
									"product_price": map[string]any{"type": "number"},
								},
								"required": []string{"product_id", "product_num"},
							},
						},
						"delivery": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":            map[string]any{"type": "string"},
								"postal":          map[string]any{"type": "string"},
								"prefecture_id":   map[string]any{"type": "number"},
								"address":         map[string]any{"type": "string"},
								"tel":             map[string]any{"type": "string"},
								"delivery_method": map[string]any{"type": "string"},
							},
							"required": []string{"name", "postal", "prefecture_id", "address", "tel", "delivery_method"},
						},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				sale, err := requireObject(req, "sale")
				if err != nil {
					return nil, err
				}
				if details, _ := sale["details"].([]any); len(details) == 0 {
					return nil, fmt.Errorf("sale.details must be a non-empty array")
				}
				if _, ok := sale["delivery"].(map[string]any); !ok {
					return nil, fmt.Errorf("sale.delivery is required")
				}
				if err := c.Post(ctx, "/sales.json", map[string]any{"sale": sale}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Order created."), nil
			},
		},
		{
			tool: writeTool("update_sale", "Update an order, for example its statuses or memo.",
				mcp.WithNumber("sale_id", mcp.Required(), mcp.Description("Order ID")),
				mcp.WithObject("sale", mcp.Required(), mcp.Description("Fields to update"),
					mcp.Properties(map[string]any{
						"accepted_status":  map[string]any{"type": "string"},
						"paid_status":      map[string]any{"type": "string"},
						"delivered_status": map[string]any{"type": "string"},
						"memo":             map[string]any{"type": "string"},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "sale_id")
				if err != nil {
					return nil, err
				}
				sale, err := requireObject(req, "sale")
				if err != nil {
					return nil, err
				}
				if err := c.Put(ctx, fmt.Sprintf("/sales/%d.json", id), map[string]any{"sale": sale}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Order updated."), nil
			},
		},
		{
			tool: writeTool("cancel_sale", "Cancel an order.",
				mcp.WithDestructiveHintAnnotation(true),
				mcp.WithNumber("sale_id", mcp.Required(), mcp.Description("Order ID")),
				mcp.WithString("reason", mcp.Description("Cancellation reason")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "sale_id")
				if err != nil {
					return nil, err
				}
				body := map[string]any{}
				if reason := req.GetString("reason", ""); reason != "" {
					body["reason"] = reason
				}
				if err := c.Put(ctx, fmt.Sprintf("/sales/%d/cancel.json", id), body, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Order cancelled."), nil
			},
		},
	}
}

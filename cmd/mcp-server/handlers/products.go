package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

func productReadTools() []toolDef {
	return []toolDef{
		{
			tool: readTool("list_products", "List products with pagination.",
				append(paginationOptions(),
					mcp.WithString("fields", mcp.Description("Comma-separated fields to return")),
					mcp.WithBoolean("published", mcp.Description("Filter by published state")),
				)...),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				params := pageParams(req)
				setStrings(params, req, "fields")
				setBool(params, req, "published")
				return fetch[[]models.Product](ctx, c, "/products.json", params, "products")
			},
		},
		{
			tool: readTool("get_product", "Get a product by id.",
				mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product ID")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "product_id")
				if err != nil {
					return nil, err
				}
				return fetch[models.Product](ctx, c, fmt.Sprintf("/products/%d.json", id), nil, "product")
			},
		},
		{
			tool: readTool("get_stocks", "List stock levels, optionally for one product.",
				append(paginationOptions(),
					mcp.WithNumber("product_id", mcp.Description("Filter by product ID")),
				)...),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				params := pageParams(req)
				if id := req.GetInt("product_id", 0); id > 0 {
					params.Set("product_id", strconv.Itoa(id))
				}
				return fetch[[]models.Stock](ctx, c, "/stocks.json", params, "stocks")
			},
		},
	}
}

func productWriteTools() []toolDef {
	return []toolDef{
		{
			tool: writeTool("update_stock", "Update stock quantities for one or more products.",
				mcp.WithArray("stocks", mcp.Required(), mcp.Description("Stock rows to update"),
					mcp.Items(map[string]any{
						"type": "object",
						"properties": map[string]any{
							"product_id":     map[string]any{"type": "number", "description": "Product ID"},
							"variant_id":     map[string]any{"type": []string{"number", "null"}, "description": "Variant ID"},
							"stock_quantity": map[string]any{"type": "number", "description": "Stock quantity"},
						},
						"required": []string{"product_id", "stock_quantity"},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				stocks, ok := req.GetArguments()["stocks"].([]any)
				if !ok || len(stocks) == 0 {
					return nil, fmt.Errorf("stocks must be a non-empty array")
				}
				if err := c.Put(ctx, "/stocks.json", map[string]any{"stocks": stocks}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Stock updated."), nil
			},
		},
		{
			tool: writeTool("update_product", "Update a product's name, price, visibility or descriptions.",
				mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product ID")),
				mcp.WithObject("product", mcp.Required(), mcp.Description("Fields to update"),
					mcp.Properties(map[string]any{
						"name":           map[string]any{"type": "string"},
						"price":          map[string]any{"type": "number"},
						"sale_price":     map[string]any{"type": []string{"number", "null"}},
						"published":      map[string]any{"type": "boolean"},
						"simple_explain": map[string]any{"type": "string"},
						"explain":        map[string]any{"type": "string"},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "product_id")
				if err != nil {
					return nil, err
				}
				product, err := requireObject(req, "product")
				if err != nil {
					return nil, err
				}
				if err := c.Put(ctx, fmt.Sprintf("/products/%d.json", id), map[string]any{"product": product}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Product updated."), nil
			},
		},
		{
			tool: writeTool("create_product", "Register a new product.",
				mcp.WithObject("product", mcp.Required(), mcp.Description("Product to create"),
					mcp.Properties(map[string]any{
						"name":           map[string]any{"type": "string"},
						"price":          map[string]any{"type": "number"},
						"sale_price":     map[string]any{"type": []string{"number", "null"}},
						"stock_quantity": map[string]any{"type": "number"},
						"weight":         map[string]any{"type": "number", "description": "Weight in grams"},
						"taxable":        map[string]any{"type": "boolean"},
						"published":      map[string]any{"type": "boolean"},
						"simple_explain": map[string]any{"type": "string"},
						"explain":        map[string]any{"type": "string"},
						"model_number":   map[string]any{"type": "string"},
					}),
				),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				product, err := requireObject(req, "product")
				if err != nil {
					return nil, err
				}
				if name, _ := product["name"].(string); name == "" {
					return nil, fmt.Errorf("product.name is required")
				}
				if _, ok := product["price"].(float64); !ok {
					return nil, fmt.Errorf("product.price is required")
				}
				if err := c.Post(ctx, "/products.json", map[string]any{"product": product}, nil); err != nil {
					return nil, err
				}
				return mcp.NewToolResultText("Product created."), nil
			},
		},
	}
}

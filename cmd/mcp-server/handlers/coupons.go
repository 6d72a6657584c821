package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/models"
)

func couponTools() []toolDef {
	return []toolDef{
		{
			tool: readTool("list_shop_coupons", "List shop coupons.", paginationOptions()...),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return fetch[[]models.ShopCoupon](ctx, c, "/shop_coupons.json", pageParams(req), "coupons")
			},
		},
		{
			tool: readTool("get_shop_coupon", "Get a shop coupon by id.",
				mcp.WithNumber("coupon_id", mcp.Required(), mcp.Description("Coupon ID")),
			),
			fn: func(ctx context.Context, c *colorme.Client, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := requireID(req, "coupon_id")
				if err != nil {
					return nil, err
				}
				return fetch[models.ShopCoupon](ctx, c, fmt.Sprintf("/shop_coupons/%d.json", id), nil, "coupon")
			},
		},
	}
}

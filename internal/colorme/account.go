package colorme

import (
	"context"
	"fmt"
	"net/http"

	"github.com/providentiaww/colorme-mcp/internal/models"
)

// AccountFetcher reads the shop identity with a freshly issued token.
type AccountFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewAccountFetcher returns a fetcher for the given API root. A nil client
// uses http.DefaultClient so that only transport limits apply.
func NewAccountFetcher(baseURL string, hc *http.Client) *AccountFetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &AccountFetcher{baseURL: baseURL, httpClient: hc}
}

// FetchAccount performs a single GET /shop.json.
func (f *AccountFetcher) FetchAccount(ctx context.Context, accessToken string) (models.Account, error) {
	client := NewClient(f.baseURL, accessToken, WithHTTPClient(f.httpClient))

	var resp models.ShopResponse
	if err := client.Get(ctx, "/shop.json", nil, &resp); err != nil {
		return models.Account{}, err
	}
	if resp.Shop.ID == "" {
		return models.Account{}, fmt.Errorf("shop response has no id")
	}
	return models.Account{
		ID:   resp.Shop.ID,
		Name: resp.Shop.Name,
		URL:  resp.Shop.URL,
	}, nil
}

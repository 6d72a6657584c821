package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// UpstreamConfig describes the bridge's own registration with the upstream
// identity provider.
type UpstreamConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	// CallbackURL must be identical for the redirect and the code exchange.
	CallbackURL string
	Scopes      []string
	// HTTPClient is used for the token request. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Upstream builds the outbound authorization redirect and exchanges codes.
type Upstream struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewUpstream creates an upstream client. Credentials are sent in the
// request body.
func NewUpstream(cfg UpstreamConfig) *Upstream {
	return &Upstream{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.CallbackURL,
			Scopes:      append([]string(nil), cfg.Scopes...),
		},
		httpClient: cfg.HTTPClient,
	}
}

// AuthCodeURL returns the upstream authorization URL carrying state.
func (u *Upstream) AuthCodeURL(state string) string {
	return u.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token with a single
// request. Failures are returned as *Error ready to be written.
func (u *Upstream) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", newError(KindMissingCode, http.StatusBadRequest, "Missing code", nil)
	}
	if u.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
	}

	tok, err := u.oauth.Exchange(ctx, code)
	if err != nil {
		return "", classifyExchangeError(err)
	}
	if tok.AccessToken == "" {
		return "", newError(KindUpstreamExchange, http.StatusBadGateway,
			"Failed to fetch access token: token response has no access_token", nil)
	}
	return tok.AccessToken, nil
}

func classifyExchangeError(err error) *Error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		status := re.Response.StatusCode
		text := re.Response.Status
		if status < http.StatusBadRequest {
			// error field in a 2xx body
			status = http.StatusBadGateway
		}
		if text == "" {
			text = fmt.Sprintf("%d %s", status, http.StatusText(status))
		}
		if re.ErrorCode != "" {
			text += " (" + re.ErrorCode + ")"
		}
		return newError(KindUpstreamExchange, status, "Failed to fetch access token: "+text, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newError(KindUpstreamExchange, http.StatusBadGateway,
			"Failed to fetch access token: token endpoint unreachable", err)
	}
	return newError(KindUpstreamExchange, http.StatusBadGateway,
		"Failed to fetch access token: malformed token response", err)
}

// exchangeResponseBody returns the token endpoint body behind a failed exchange.
func exchangeResponseBody(err error) (string, bool) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return "", false
	}
	return string(re.Body), true
}

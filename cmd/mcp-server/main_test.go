package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/providentiaww/colorme-mcp/internal/config"
	"github.com/providentiaww/colorme-mcp/internal/logging"
	"github.com/providentiaww/colorme-mcp/internal/models"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	publicURL    = "http://localhost:8788"
	testRedirect = "https://client.example/cb"
	testVerifier = "verifier-verifier-verifier-verifier-verifier"
)

type testEnv struct {
	app     *app
	srv     *httptest.Server
	shopAPI *httptest.Server
	auths   chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{auths: make(chan string, 10)}

	env.shopAPI = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.auths <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"shop":{"id":"PA01","name":"Test Shop","url":"https://shop.example"}}`))
	}))
	t.Cleanup(env.shopAPI.Close)

	settings, err := config.Load("")
	require.NoError(t, err)
	settings.Server.PublicURL = publicURL
	settings.ColorMe.ClientID = "bridge-client"
	settings.ColorMe.ClientSecret = "bridge-secret"
	settings.ColorMe.APIBaseURL = env.shopAPI.URL
	settings.Cookie.EncryptionKey = "test-cookie-key"
	settings.Store.DatabaseURL = ""
	settings.Events.AMQPURL = ""

	env.app, err = newApp(context.Background(), settings, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(env.app.Close)

	env.srv = httptest.NewServer(env.app.Router())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) post(t *testing.T, path, token, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.srv.Client().Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// accessToken registers a client, completes an authorization for shop PA01
// and redeems the code at /token.
func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	resp := e.post(t, "/register", "", "application/json", `{"redirect_uris":["`+testRedirect+`"],"client_name":"Agent"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var client struct {
		ClientID string `json:"client_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&client))

	sum := sha256.Sum256([]byte(testVerifier))
	q := url.Values{
		"response_type":         {"code"},
		"client_id":             {client.ClientID},
		"redirect_uri":          {testRedirect},
		"scope":                 {"read_products"},
		"state":                 {"xyz"},
		"code_challenge":        {base64.RawURLEncoding.EncodeToString(sum[:])},
		"code_challenge_method": {"S256"},
	}
	authReq, err := e.app.provider.ParseAuthRequest(httptest.NewRequest(http.MethodGet, "/authorize?"+q.Encode(), nil))
	require.NoError(t, err)

	account := models.Account{ID: "PA01", Name: "Test Shop", URL: "https://shop.example"}
	result, err := e.app.provider.CompleteAuthorization(context.Background(), oauth.CompleteOptions{
		Request:  authReq,
		UserID:   account.ID,
		Metadata: oauth.Metadata{Label: account.Name},
		Scope:    authReq.Scope,
		Props:    models.NewSessionProps(account, "shop-token", authReq.Scope),
	})
	require.NoError(t, err)
	loc, err := url.Parse(result.RedirectTo)
	require.NoError(t, err)

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {loc.Query().Get("code")},
		"client_id":     {client.ClientID},
		"redirect_uri":  {testRedirect},
		"code_verifier": {testVerifier},
	}
	resp = e.post(t, "/token", "", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

func TestPublicEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/.well-known/oauth-authorization-server")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	assert.Equal(t, publicURL, meta["issuer"])
	assert.Equal(t, publicURL+"/authorize", meta["authorization_endpoint"])

	resp = env.get(t, "/.well-known/oauth-protected-resource/mcp")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/jwks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")

	resp = env.get(t, "/authorize")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedEndpointsChallenge(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/mcp", "/message", "/api/tools/get_shop"} {
		resp := env.post(t, path, "", "application/json", `{}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("WWW-Authenticate"),
			`resource_metadata="`+publicURL+`/.well-known/oauth-protected-resource"`, path)
	}

	resp := env.get(t, "/sse")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/mcp", nil)
	require.NoError(t, err)
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")
}

func TestToolsWithIssuedToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.accessToken(t)

	resp := env.post(t, "/api/tools/get_session", token, "application/json", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, "oauth", session["mode"])
	assert.Equal(t, "PA01", session["shop_id"])
	assert.Equal(t, true, session["read_only"])

	resp = env.post(t, "/api/tools/get_shop", token, "application/json", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer shop-token", <-env.auths)

	resp = env.post(t, "/api/tools/update_stock", token, "application/json", `{"stocks":[]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "write tools are hidden in read-only mode")

	resp = env.post(t, "/api/tools/get_shop", "not-a-token", "application/json", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestStreamableInitialize(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.accessToken(t)

	resp := env.post(t, "/mcp", token, "application/json",
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "colorme-shop")
}

package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/providentiaww/colorme-mcp/internal/models"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://mcp.example.com"
	testRedirect = "https://client.example/cb"
	testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type fixture struct {
	server *Server
	store  *oauth.MemoryStore
	sealer *oauth.Sealer
	keys   *oauth.KeyManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := oauth.GenerateKeyManager()
	require.NoError(t, err)
	key, err := oauth.DeriveKey([]byte("test-secret"), "props")
	require.NoError(t, err)
	sealer, err := oauth.NewSealer(key)
	require.NoError(t, err)

	store := oauth.NewMemoryStore()
	cfg := oauth.Config{
		Issuer:          testIssuer,
		Audience:        testIssuer,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		AuthCodeTTL:     10 * time.Minute,
		ClientCacheTTL:  time.Minute,
		DCRMode:         "open",
	}
	return &fixture{
		server: NewServer(cfg, keys, store, sealer, nil),
		store:  store,
		sealer: sealer,
		keys:   keys,
	}
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (f *fixture) register(t *testing.T, body string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (f *fixture) publicClient(t *testing.T) string {
	t.Helper()
	resp := f.register(t, `{"redirect_uris":["`+testRedirect+`"],"client_name":"Agent","client_uri":"https://agent.example"}`)
	return resp["client_id"].(string)
}

func authorizeRequest(clientID string, extra url.Values) *http.Request {
	q := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {testRedirect},
		"scope":                 {"read_products  write_products"},
		"state":                 {"xyz"},
		"code_challenge":        {challengeFor(testVerifier)},
		"code_challenge_method": {"S256"},
	}
	for k, v := range extra {
		q[k] = v
	}
	return httptest.NewRequest(http.MethodGet, "/authorize?"+q.Encode(), nil)
}

func testProps() models.SessionProps {
	return models.NewSessionProps(
		models.Account{ID: "PA01", Name: "Test Shop", URL: "https://shop.example"},
		"shop-token",
		[]string{"read_products", "write_products"},
	)
}

// authorize runs ParseAuthRequest and CompleteAuthorization and returns the code.
func (f *fixture) authorize(t *testing.T, clientID string) string {
	t.Helper()
	req, err := f.server.ParseAuthRequest(authorizeRequest(clientID, nil))
	require.NoError(t, err)

	result, err := f.server.CompleteAuthorization(context.Background(), oauth.CompleteOptions{
		Request:  req,
		UserID:   "PA01",
		Metadata: oauth.Metadata{Label: "Test Shop"},
		Scope:    req.Scope,
		Props:    testProps(),
	})
	require.NoError(t, err)

	loc, err := url.Parse(result.RedirectTo)
	require.NoError(t, err)
	assert.Equal(t, "client.example", loc.Host)
	assert.Equal(t, "xyz", loc.Query().Get("state"))
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (f *fixture) token(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.HandleToken(rec, req)
	return rec
}

func codeForm(clientID, code string) url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"redirect_uri":  {testRedirect},
		"code_verifier": {testVerifier},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestParseAuthRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)

	req, err := f.server.ParseAuthRequest(authorizeRequest(clientID, url.Values{"resource": {testIssuer + "/mcp"}}))
	require.NoError(t, err)
	assert.Equal(t, clientID, req.ClientID)
	assert.Equal(t, []string{"read_products", "write_products"}, req.Scope)
	assert.Equal(t, "S256", req.CodeChallengeMethod)
	assert.Equal(t, testIssuer+"/mcp", req.Resource)
	assert.Equal(t, "xyz", req.State)
}

func TestParseAuthRequestErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)

	tests := map[string]url.Values{
		"missing client":        {"client_id": {""}},
		"unknown client":        {"client_id": {"client_nope"}},
		"wrong response type":   {"response_type": {"token"}},
		"unregistered redirect": {"redirect_uri": {"https://evil.example/cb"}},
		"public without pkce":   {"code_challenge": {""}},
		"plain pkce":            {"code_challenge_method": {"plain"}},
	}
	for name, extra := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.server.ParseAuthRequest(authorizeRequest(clientID, extra))
			assert.Error(t, err)
		})
	}
}

func TestCodeGrantCarriesSealedProps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)
	code := f.authorize(t, clientID)

	resp := decodeTokens(t, f.token(codeForm(clientID, code)))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "read_products write_products", resp.Scope)
	assert.NotEmpty(t, resp.RefreshToken)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (any, error) {
		return f.keys.PublicKey(), nil
	}, jwt.WithIssuer(testIssuer), jwt.WithAudience(testIssuer))
	require.NoError(t, err)
	assert.Equal(t, "PA01", claims["sub"])
	assert.Equal(t, clientID, claims["client_id"])

	record, err := f.store.GetAccessToken(context.Background(), claims["jti"].(string))
	require.NoError(t, err)
	var props models.SessionProps
	require.NoError(t, f.sealer.Open(record.SealedProps, &props))
	assert.Equal(t, testProps(), props)
	assert.NotContains(t, string(record.SealedProps), "shop-token")
}

func TestCodeGrantSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)
	code := f.authorize(t, clientID)

	decodeTokens(t, f.token(codeForm(clientID, code)))
	assert.Equal(t, http.StatusBadRequest, f.token(codeForm(clientID, code)).Code)
}

func TestCodeGrantRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(url.Values, string)
		want   int
	}{
		{"wrong verifier", func(v url.Values, _ string) { v.Set("code_verifier", "nope") }, http.StatusBadRequest},
		{"missing verifier", func(v url.Values, _ string) { v.Del("code_verifier") }, http.StatusBadRequest},
		{"redirect mismatch", func(v url.Values, _ string) { v.Set("redirect_uri", "https://client.example/other") }, http.StatusBadRequest},
		{"missing code", func(v url.Values, _ string) { v.Del("code") }, http.StatusBadRequest},
		{"unknown client", func(v url.Values, _ string) { v.Set("client_id", "client_nope") }, http.StatusUnauthorized},
		{"other client", func(v url.Values, other string) { v.Set("client_id", other) }, http.StatusBadRequest},
		{"unsupported grant", func(v url.Values, _ string) { v.Set("grant_type", "password") }, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			clientID := f.publicClient(t)
			other := f.publicClient(t)
			form := codeForm(clientID, f.authorize(t, clientID))
			tc.modify(form, other)
			assert.Equal(t, tc.want, f.token(form).Code)
		})
	}
}

func TestCodeGrantExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)
	code := f.authorize(t, clientID)

	f.server.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, http.StatusBadRequest, f.token(codeForm(clientID, code)).Code)
}

func TestRefreshGrantRotates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clientID := f.publicClient(t)
	first := decodeTokens(t, f.token(codeForm(clientID, f.authorize(t, clientID))))

	refresh := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {first.RefreshToken},
		"client_id":     {clientID},
	}
	second := decodeTokens(t, f.token(refresh))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.Scope, second.Scope)

	assert.Equal(t, http.StatusBadRequest, f.token(refresh).Code, "rotated token must not be reusable")

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(second.AccessToken, claims)
	require.NoError(t, err)
	record, err := f.store.GetAccessToken(context.Background(), claims["jti"].(string))
	require.NoError(t, err)
	var props models.SessionProps
	require.NoError(t, f.sealer.Open(record.SealedProps, &props))
	assert.Equal(t, "shop-token", props.AccessToken)
}

func TestConfidentialClient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	resp := f.register(t, `{"redirect_uris":["`+testRedirect+`"],"token_endpoint_auth_method":"client_secret_post"}`)
	clientID := resp["client_id"].(string)
	secret := resp["client_secret"].(string)
	require.NotEmpty(t, secret)

	stored, err := f.store.GetClient(context.Background(), clientID)
	require.NoError(t, err)
	assert.NotEqual(t, secret, stored.ClientSecretHash)

	form := codeForm(clientID, f.authorize(t, clientID))
	form.Set("client_secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, f.token(form).Code)

	form = codeForm(clientID, f.authorize(t, clientID))
	form.Set("client_secret", secret)
	decodeTokens(t, f.token(form))
}

func TestCompleteAuthorizationValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.server.CompleteAuthorization(context.Background(), oauth.CompleteOptions{UserID: "PA01"})
	assert.Error(t, err)

	_, err = f.server.CompleteAuthorization(context.Background(), oauth.CompleteOptions{
		Request: &oauth.AuthRequest{ClientID: "c", RedirectURI: testRedirect},
	})
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for name, body := range map[string]string{
		"no redirect":     `{}`,
		"bad json":        `{`,
		"http redirect":   `{"redirect_uris":["http://client.example/cb"]}`,
		"bad wildcard":    `{"redirect_uris":["https://*.example.com/cb"]}`,
		"fragment":        `{"redirect_uris":["https://client.example/cb#frag"]}`,
		"bad auth method": `{"redirect_uris":["https://client.example/cb"],"token_endpoint_auth_method":"private_key_jwt"}`,
	} {
		rec := httptest.NewRecorder()
		f.server.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	resp := f.register(t, `{"redirect_uris":["http://localhost:3000/cb","https://chatgpt.com/aip/g-*/oauth/callback"],"client_uri":"https://agent.example"}`)
	assert.Equal(t, "none", resp["token_endpoint_auth_method"])
	assert.Equal(t, "https://agent.example", resp["client_uri"])
	assert.NotContains(t, resp, "client_secret")
}

func TestRegisterProtectedMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.server.cfg.DCRMode = "protected"
	f.server.cfg.DCRAccessToken = "dcr-token"
	body := `{"redirect_uris":["` + testRedirect + `"]}`

	rec := httptest.NewRecorder()
	f.server.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer dcr-token")
	rec = httptest.NewRecorder()
	f.server.HandleRegister(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMetadataEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.HandleWellKnown(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	var meta map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, testIssuer, meta["issuer"])
	assert.Equal(t, testIssuer+"/authorize", meta["authorization_endpoint"])
	assert.Equal(t, testIssuer+"/token", meta["token_endpoint"])
	assert.Equal(t, testIssuer+"/register", meta["registration_endpoint"])

	rec = httptest.NewRecorder()
	f.server.HandleProtectedResource(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource", nil))
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []any{testIssuer}, res["authorization_servers"])
	assert.Equal(t, testIssuer+"/.well-known/oauth-protected-resource", f.server.ProtectedResourceMetadataURL())

	rec = httptest.NewRecorder()
	f.server.HandleJWKS(rec, httptest.NewRequest(http.MethodGet, "/jwks", nil))
	var jwks struct {
		Keys []map[string]string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, f.keys.KID(), jwks.Keys[0]["kid"])
	assert.Equal(t, "AQAB", jwks.Keys[0]["e"])
}

func TestRedirectAllowed(t *testing.T) {
	t.Parallel()

	pattern := "https://chatgpt.com/aip/g-*/oauth/callback"
	tests := []struct {
		candidate string
		want      bool
	}{
		{"https://chatgpt.com/aip/g-abc123/oauth/callback", true},
		{"https://chatgpt.com/aip/g-/oauth/callback", false},
		{"https://chatgpt.com/aip/g-abc/def/oauth/callback", false},
		{"https://chatgpt.com/aip/g-abc123/oauth/callback/extra", false},
		{"https://chatgpt.com/aip/g-abc123/oauth/callback?next=x", false},
		{"https://evil.com/aip/g-abc/oauth/callback", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, redirectAllowed(tc.candidate, []string{pattern}), tc.candidate)
	}
	assert.True(t, redirectAllowed(testRedirect, []string{testRedirect}))
	assert.False(t, redirectAllowed(testRedirect+"/", []string{testRedirect}))
}

func TestValidateRedirectURI(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{
		"https://client.example/cb",
		"http://localhost:3000/cb",
		"http://127.0.0.1/cb",
		"http://[::1]:8080/cb",
		"https://chatgpt.com/aip/g-*/oauth/callback",
	} {
		assert.NoError(t, validateRedirectURI(ok), ok)
	}
	for _, bad := range []string{
		"http://client.example/cb",
		"https://client.example/cb#frag",
		"/relative",
		"https://evil.com/aip/g-*/oauth/callback",
		"https://chatgpt.com/aip/*/oauth/callback",
	} {
		assert.Error(t, validateRedirectURI(bad), bad)
	}
}

func TestCheckVerifier(t *testing.T) {
	t.Parallel()

	challenge := challengeFor(testVerifier)
	assert.NoError(t, checkVerifier(pkceS256, challenge, testVerifier))
	assert.NoError(t, checkVerifier(pkceNone, "", ""))
	assert.Error(t, checkVerifier(pkceS256, challenge, ""))
	assert.Error(t, checkVerifier(pkceS256, challenge, "other-verifier"))
	assert.Error(t, checkVerifier("plain", testVerifier, testVerifier))
}

package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/providentiaww/colorme-mcp/internal/consent"
	"github.com/providentiaww/colorme-mcp/internal/models"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

type fakeProvider struct {
	mu          sync.Mutex
	clients     map[string]*oauth.Client
	completeErr error
	completed   []oauth.CompleteOptions
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{clients: map[string]*oauth.Client{
		"abc123": {ClientID: "abc123", ClientName: "Test Agent", RedirectURIs: []string{"https://client.example/cb"}},
	}}
}

func (p *fakeProvider) ParseAuthRequest(r *http.Request) (*oauth.AuthRequest, error) {
	q := r.URL.Query()
	if q.Get("client_id") == "" {
		return nil, errors.New("client_id is required")
	}
	return &oauth.AuthRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               strings.Fields(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}, nil
}

func (p *fakeProvider) LookupClient(_ context.Context, clientID string) (*oauth.Client, error) {
	c, ok := p.clients[clientID]
	if !ok {
		return nil, oauth.ErrNotFound
	}
	return c, nil
}

func (p *fakeProvider) CompleteAuthorization(_ context.Context, opts oauth.CompleteOptions) (*oauth.CompleteResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, opts)
	if p.completeErr != nil {
		return nil, p.completeErr
	}
	target, _ := url.Parse(opts.Request.RedirectURI)
	q := target.Query()
	q.Set("code", "mcp-code")
	q.Set("state", opts.Request.State)
	target.RawQuery = q.Encode()
	return &oauth.CompleteResult{RedirectTo: target.String()}, nil
}

func (p *fakeProvider) calls() []oauth.CompleteOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]oauth.CompleteOptions(nil), p.completed...)
}

type fakeConsent struct {
	approved bool
	rendered []consent.DialogOptions
	approval *consent.Approval
	parseErr  error
	renderErr error
}

func (c *fakeConsent) ClientIDAlreadyApproved(_ *http.Request, _ string) bool { return c.approved }

func (c *fakeConsent) RenderApprovalDialog(w http.ResponseWriter, _ *http.Request, opts consent.DialogOptions) error {
	c.rendered = append(c.rendered, opts)
	if c.renderErr != nil {
		return c.renderErr
	}
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("consent"))
	return err
}

func (c *fakeConsent) ParseRedirectApproval(_ *http.Request) (*consent.Approval, error) {
	if c.parseErr != nil {
		return nil, c.parseErr
	}
	return c.approval, nil
}

type fakeExchanger struct {
	token string
	err   error
	codes []string
}

func (e *fakeExchanger) AuthCodeURL(state string) string {
	return "https://upstream.example/oauth/authorize?state=" + url.QueryEscape(state)
}

func (e *fakeExchanger) Exchange(_ context.Context, code string) (string, error) {
	e.codes = append(e.codes, code)
	if e.err != nil {
		return "", e.err
	}
	return e.token, nil
}

type fakeAccounts struct {
	account models.Account
	err     error
	tokens  []string
}

func (a *fakeAccounts) FetchAccount(_ context.Context, token string) (models.Account, error) {
	a.tokens = append(a.tokens, token)
	if a.err != nil {
		return models.Account{}, a.err
	}
	return a.account, nil
}

type bodyError struct{ body string }

func (e *bodyError) Error() string        { return "API error: 401" }
func (e *bodyError) ResponseBody() string { return e.body }

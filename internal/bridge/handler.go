// Package bridge connects the MCP authorization server to the ColorMe Shop
// OAuth provider. Continuation state lives only in URLs and the approval
// cookie; nothing is held in memory between requests.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/providentiaww/colorme-mcp/internal/consent"
	"github.com/providentiaww/colorme-mcp/internal/events"
	"github.com/providentiaww/colorme-mcp/internal/logging"
	"github.com/providentiaww/colorme-mcp/internal/metrics"
	"github.com/providentiaww/colorme-mcp/internal/models"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

// Provider is the MCP-side authorization server.
type Provider interface {
	ParseAuthRequest(r *http.Request) (*oauth.AuthRequest, error)
	LookupClient(ctx context.Context, clientID string) (*oauth.Client, error)
	CompleteAuthorization(ctx context.Context, opts oauth.CompleteOptions) (*oauth.CompleteResult, error)
}

// Consent renders the approval dialog and reads the approval cookie.
type Consent interface {
	ClientIDAlreadyApproved(r *http.Request, clientID string) bool
	RenderApprovalDialog(w http.ResponseWriter, r *http.Request, opts consent.DialogOptions) error
	ParseRedirectApproval(r *http.Request) (*consent.Approval, error)
}

// TokenExchanger talks to the upstream authorization and token endpoints.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// AccountFetcher reads the shop identity for a fresh token.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, accessToken string) (models.Account, error)
}

// approvalState is what the consent dialog carries between GET and POST.
type approvalState struct {
	OAuthReqInfo Record `json:"oauthReqInfo"`
}

// Handler serves /authorize and /callback.
type Handler struct {
	provider Provider
	consent  Consent
	upstream TokenExchanger
	accounts AccountFetcher
	server   consent.ServerInfo
	events   events.Publisher
	metrics  *metrics.Bridge
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for bridge failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithEvents sets the publisher for authorization events.
func WithEvents(p events.Publisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.events = p
		}
	}
}

// WithMetrics sets the counters for bridge outcomes. A nil value disables them.
func WithMetrics(m *metrics.Bridge) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithServerInfo sets the name and description shown on the consent dialog.
func WithServerInfo(info consent.ServerInfo) Option {
	return func(h *Handler) { h.server = info }
}

// NewHandler wires the bridge to its collaborators.
func NewHandler(provider Provider, dialog Consent, upstream TokenExchanger, accounts AccountFetcher, opts ...Option) *Handler {
	h := &Handler{
		provider: provider,
		consent:  dialog,
		upstream: upstream,
		accounts: accounts,
		server:   consent.ServerInfo{Name: "ColorMe Shop MCP Server"},
		events:   events.Nop{},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the bridge endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/authorize", h.Authorize)
	r.Post("/authorize", h.Approve)
	r.Get("/callback", h.Callback)
}

// Authorize captures the inbound request and either skips straight to the
// upstream redirect or shows the consent dialog.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	req, err := h.provider.ParseAuthRequest(r)
	if err != nil {
		h.fail(w, r, metrics.StageAuthorize, "", newError(KindInvalidRequest, http.StatusBadRequest, "Invalid request: "+err.Error(), err))
		return
	}
	if req.ClientID == "" {
		h.fail(w, r, metrics.StageAuthorize, "", newError(KindInvalidRequest, http.StatusBadRequest, "Invalid request", nil))
		return
	}

	record, err := NewRecord(req)
	if err != nil {
		h.fail(w, r, metrics.StageAuthorize, req.ClientID, newError(KindInternal, http.StatusInternalServerError, "Internal server error", err))
		return
	}

	if h.consent.ClientIDAlreadyApproved(r, req.ClientID) {
		h.metrics.Observe(metrics.StageAuthorize, "pre_approved")
		h.redirectUpstream(w, r, record, nil)
		return
	}

	client, err := h.provider.LookupClient(r.Context(), req.ClientID)
	if err != nil {
		h.fail(w, r, metrics.StageAuthorize, req.ClientID, newError(KindInvalidRequest, http.StatusBadRequest, "Invalid request: unknown client", err))
		return
	}

	if err := h.consent.RenderApprovalDialog(w, r, consent.DialogOptions{
		Client: client,
		Server: h.server,
		State:  approvalState{OAuthReqInfo: record},
	}); err != nil {
		h.fail(w, r, metrics.StageAuthorize, req.ClientID, newError(KindInternal, http.StatusInternalServerError, "Internal server error", err))
		return
	}
	h.metrics.Observe(metrics.StageAuthorize, "consent_rendered")
}

// Approve handles the consent form submission.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	approval, err := h.consent.ParseRedirectApproval(r)
	if err != nil {
		h.fail(w, r, metrics.StageConsent, "", newError(KindInvalidState, http.StatusBadRequest, "Invalid request", err))
		return
	}

	var state approvalState
	if err := json.Unmarshal(approval.State, &state); err != nil || state.OAuthReqInfo.IsZero() {
		if err == nil {
			err = errors.New("oauthReqInfo missing")
		}
		h.fail(w, r, metrics.StageConsent, approval.ClientID, newError(KindInvalidState, http.StatusBadRequest, "Invalid request", err))
		return
	}
	record := state.OAuthReqInfo

	if !approval.Approved {
		h.metrics.Observe(metrics.StageConsent, "denied")
		h.deny(w, r, record)
		return
	}

	h.metrics.Observe(metrics.StageConsent, "approved")
	h.redirectUpstream(w, r, record, approval.Headers)
}

// Callback receives the upstream redirect, exchanges the code, enriches the
// grant with the shop identity and completes the MCP authorization.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	record, err := DecodeState(query.Get("state"))
	if err != nil {
		h.fail(w, r, metrics.StageCallback, "", err)
		return
	}
	clientID := record.ClientID()

	authReq, scopes, err := decodeAuthRequest(record)
	if err != nil {
		h.fail(w, r, metrics.StageCallback, clientID, newError(KindInvalidState, http.StatusBadRequest, "Invalid state", err))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, r, metrics.StageCallback, clientID, newError(KindMissingCode, http.StatusBadRequest, "Missing code", nil))
		return
	}

	accessToken, err := h.upstream.Exchange(ctx, code)
	if err != nil {
		h.fail(w, r, metrics.StageCallback, clientID, err)
		return
	}

	account, err := h.accounts.FetchAccount(ctx, accessToken)
	if err != nil {
		h.fail(w, r, metrics.StageCallback, clientID, enrichmentError(err))
		return
	}

	result, err := h.provider.CompleteAuthorization(ctx, oauth.CompleteOptions{
		Request:  authReq,
		UserID:   account.ID,
		Metadata: oauth.Metadata{Label: account.Name},
		Scope:    scopes,
		Props:    models.NewSessionProps(account, accessToken, scopes),
	})
	if err != nil {
		h.fail(w, r, metrics.StageCallback, clientID, newError(KindCompletion, http.StatusInternalServerError, "Failed to complete authorization", err))
		return
	}

	h.metrics.Observe(metrics.StageCallback, "completed")
	h.publish(ctx, events.Event{
		Type:     events.TypeAuthorizationCompleted,
		ClientID: clientID,
		ShopID:   account.ID,
		Scopes:   scopes,
	})
	h.logger.Info("authorization completed", "client_id", clientID, "shop_id", account.ID, "scopes", scopes)
	http.Redirect(w, r, result.RedirectTo, http.StatusFound)
}

func (h *Handler) redirectUpstream(w http.ResponseWriter, r *http.Request, record Record, headers http.Header) {
	for key, values := range headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.upstream.AuthCodeURL(EncodeState(record)), http.StatusFound)
}

// deny sends the user back to the client with access_denied.
func (h *Handler) deny(w http.ResponseWriter, r *http.Request, record Record) {
	var req oauth.AuthRequest
	if err := record.Decode(&req); err != nil || req.RedirectURI == "" {
		h.fail(w, r, metrics.StageConsent, record.ClientID(), newError(KindInvalidState, http.StatusBadRequest, "Access denied", err))
		return
	}
	target, err := url.Parse(req.RedirectURI)
	if err != nil {
		h.fail(w, r, metrics.StageConsent, record.ClientID(), newError(KindInvalidState, http.StatusBadRequest, "Access denied", err))
		return
	}
	q := target.Query()
	q.Set("error", "access_denied")
	if req.State != "" {
		q.Set("state", req.State)
	}
	target.RawQuery = q.Encode()

	h.publish(r.Context(), events.Event{Type: events.TypeAuthorizationFailed, ClientID: record.ClientID(), ErrorKind: "access_denied"})
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, stage, clientID string, err error) {
	kind := KindOf(err)
	h.metrics.Observe(stage, string(kind))
	h.logger.Warn("authorization failed", "stage", stage, "kind", kind, "client_id", clientID, "error", err)
	if body, ok := exchangeResponseBody(err); ok {
		h.logger.Debug("upstream token response", "client_id", clientID, "body", body)
	}
	h.publish(r.Context(), events.Event{Type: events.TypeAuthorizationFailed, ClientID: clientID, ErrorKind: string(kind)})
	WriteError(w, err)
}

func (h *Handler) publish(ctx context.Context, e events.Event) {
	if err := h.events.Publish(ctx, e); err != nil {
		h.logger.Warn("publishing event", "type", e.Type, "error", err)
	}
}

// decodeAuthRequest unpacks the record for the authorization server and
// normalizes its scope, which may be a string or an array.
func decodeAuthRequest(record Record) (*oauth.AuthRequest, []string, error) {
	var wire struct {
		oauth.AuthRequest
		Scope json.RawMessage `json:"scope"`
	}
	if err := record.Decode(&wire); err != nil {
		return nil, nil, err
	}
	scopes, err := NormalizeScope(wire.Scope)
	if err != nil {
		return nil, nil, err
	}
	req := wire.AuthRequest
	req.Scope = scopes
	return &req, scopes, nil
}

type responseBodyError interface {
	ResponseBody() string
}

func enrichmentError(err error) *Error {
	detail := err.Error()
	var rb responseBodyError
	if errors.As(err, &rb) {
		detail = rb.ResponseBody()
	}
	return newError(KindUpstreamEnrichment, http.StatusInternalServerError, "Failed to fetch shop information: "+detail, err)
}

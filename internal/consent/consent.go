// Package consent renders the approval dialog and keeps the list of client
// ids the user agent has already approved in an encrypted cookie.
package consent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"slices"

	"github.com/gorilla/securecookie"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

const (
	// CookieName holds the approved client ids.
	CookieName = "mcp-approved-clients"

	cookieMaxAge = 365 * 24 * 60 * 60
	stateName    = "consent-state"
	stateMaxAge  = 10 * 60
	maxApproved  = 50
)

var (
	// ErrInvalidState is returned when the submitted form state is missing,
	// tampered with, expired, or has no client id.
	ErrInvalidState = errors.New("consent: invalid state")
	// ErrMethod is returned when the decision does not arrive as a POST.
	ErrMethod = errors.New("consent: decision must be POSTed")
)

// ServerInfo describes this server on the dialog.
type ServerInfo struct {
	Name        string
	Description string
	LogoURL     string
}

// DialogOptions are passed to RenderApprovalDialog.
type DialogOptions struct {
	Client *oauth.Client
	Server ServerInfo
	// State is echoed back by ParseRedirectApproval. It must JSON-encode to an
	// object with oauthReqInfo.clientId.
	State any
	// Action is the form target. Defaults to the current path.
	Action string
}

// Approval is the parsed consent decision.
type Approval struct {
	State    json.RawMessage
	ClientID string
	Approved bool
	// Headers carries Set-Cookie for an approval; empty on denial.
	Headers http.Header
}

// Dialog implements the consent step.
type Dialog struct {
	cookies *securecookie.SecureCookie
	states  *securecookie.SecureCookie
	secure  bool
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithInsecureCookies drops the Secure attribute for plain-http development.
func WithInsecureCookies() Option {
	return func(d *Dialog) { d.secure = false }
}

// New derives cookie and state keys from the deployment key.
func New(key string, opts ...Option) (*Dialog, error) {
	if key == "" {
		return nil, errors.New("consent: cookie key is required")
	}
	cookies, err := newCodec(key, "approved-clients", cookieMaxAge)
	if err != nil {
		return nil, err
	}
	states, err := newCodec(key, "consent-state", stateMaxAge)
	if err != nil {
		return nil, err
	}
	d := &Dialog{cookies: cookies, states: states, secure: true}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func newCodec(key, purpose string, maxAge int) (*securecookie.SecureCookie, error) {
	hashKey, err := oauth.DeriveKey([]byte(key), purpose+"-hash")
	if err != nil {
		return nil, err
	}
	blockKey, err := oauth.DeriveKey([]byte(key), purpose+"-block")
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(maxAge)
	return codec, nil
}

// ClientIDAlreadyApproved reports whether the request carries a valid
// approval cookie listing clientID. Any decode failure reads as false.
func (d *Dialog) ClientIDAlreadyApproved(r *http.Request, clientID string) bool {
	if clientID == "" {
		return false
	}
	return slices.Contains(d.approvedClients(r), clientID)
}

func (d *Dialog) approvedClients(r *http.Request) []string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	var ids []string
	if err := d.cookies.Decode(CookieName, c.Value, &ids); err != nil {
		return nil
	}
	return ids
}

// RenderApprovalDialog writes the consent page. The state is signed and
// encrypted into a hidden form field.
func (d *Dialog) RenderApprovalDialog(w http.ResponseWriter, r *http.Request, opts DialogOptions) error {
	raw, err := json.Marshal(opts.State)
	if err != nil {
		return fmt.Errorf("encoding dialog state: %w", err)
	}
	encoded, err := d.states.Encode(stateName, json.RawMessage(raw))
	if err != nil {
		return fmt.Errorf("sealing dialog state: %w", err)
	}

	action := opts.Action
	if action == "" {
		action = r.URL.Path
	}

	view := dialogView{
		Server: opts.Server,
		Action: action,
		State:  encoded,
	}
	if opts.Client != nil {
		view.ClientName = opts.Client.ClientName
		view.ClientURI = opts.Client.ClientURI
		view.RedirectURIs = opts.Client.RedirectURIs
		if view.ClientName == "" {
			view.ClientName = opts.Client.ClientID
		}
	}

	var page bytes.Buffer
	if err := dialogTemplate.Execute(&page, view); err != nil {
		return fmt.Errorf("rendering dialog: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src https:; form-action 'self'")
	w.WriteHeader(http.StatusOK)
	_, err = page.WriteTo(w)
	return err
}

// ParseRedirectApproval reads a submitted consent form.
func (d *Dialog) ParseRedirectApproval(r *http.Request) (*Approval, error) {
	if r.Method != http.MethodPost {
		return nil, ErrMethod
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	encoded := r.PostForm.Get("state")
	if encoded == "" {
		return nil, ErrInvalidState
	}

	var raw json.RawMessage
	if err := d.states.Decode(stateName, encoded, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	var probe struct {
		OAuthReqInfo struct {
			ClientID string `json:"clientId"`
		} `json:"oauthReqInfo"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.OAuthReqInfo.ClientID == "" {
		return nil, ErrInvalidState
	}
	clientID := probe.OAuthReqInfo.ClientID

	approval := &Approval{
		State:    raw,
		ClientID: clientID,
		Approved: r.PostForm.Get("action") != "deny",
		Headers:  http.Header{},
	}
	if !approval.Approved {
		return approval, nil
	}

	cookie, err := d.approvalCookie(r, clientID)
	if err != nil {
		return nil, err
	}
	approval.Headers.Add("Set-Cookie", cookie.String())
	return approval, nil
}

func (d *Dialog) approvalCookie(r *http.Request, clientID string) (*http.Cookie, error) {
	ids := d.approvedClients(r)
	if !slices.Contains(ids, clientID) {
		ids = append(ids, clientID)
	}
	if len(ids) > maxApproved {
		ids = ids[len(ids)-maxApproved:]
	}
	value, err := d.cookies.Encode(CookieName, ids)
	if err != nil {
		return nil, fmt.Errorf("encoding approval cookie: %w", err)
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   d.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

type dialogView struct {
	Server       ServerInfo
	ClientName   string
	ClientURI    string
	RedirectURIs []string
	Action       string
	State        string
}

var dialogTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>{{.ClientName}} | Authorization</title>
  <style>
    body { font-family: -apple-system, "Hiragino Sans", Arial, sans-serif; background:#f5f6f8; color:#1f2937; display:flex; align-items:center; justify-content:center; min-height:100vh; margin:0; }
    .card { background:#fff; border:1px solid #e5e7eb; padding:32px; border-radius:12px; max-width:460px; width:100%; }
    h1 { margin:0 0 8px; font-size:20px; }
    p { color:#4b5563; }
    dl { font-size:14px; }
    dt { font-weight:600; margin-top:8px; }
    dd { margin:0; word-break:break-all; }
    .actions { display:flex; gap:12px; margin-top:24px; }
    button { flex:1; padding:10px; border-radius:8px; border:1px solid #d1d5db; font-size:15px; cursor:pointer; }
    button.approve { background:#e60012; border-color:#e60012; color:#fff; }
  </style>
</head>
<body>
  <div class="card">
    {{if .Server.LogoURL}}<img src="{{.Server.LogoURL}}" alt="" height="40" />{{end}}
    <h1>{{.Server.Name}}</h1>
    {{if .Server.Description}}<p>{{.Server.Description}}</p>{{end}}
    <p><strong>{{.ClientName}}</strong> is requesting access to your shop.</p>
    <dl>
      {{if .ClientURI}}<dt>Website</dt><dd>{{.ClientURI}}</dd>{{end}}
      {{if .RedirectURIs}}<dt>Redirect URIs</dt>{{range .RedirectURIs}}<dd>{{.}}</dd>{{end}}{{end}}
    </dl>
    <form method="post" action="{{.Action}}">
      <input type="hidden" name="state" value="{{.State}}" />
      <div class="actions">
        <button type="submit" name="action" value="deny">Cancel</button>
        <button type="submit" name="action" value="approve" class="approve">Approve</button>
      </div>
    </form>
  </div>
</body>
</html>`))

package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

// Random lengths, in bytes before encoding.
const (
	codeLength     = 32
	secretLength   = 48
	clientIDLength = 18
)

// PKCE methods. pkceNone marks confidential clients that sent no challenge.
const (
	pkceS256 = "S256"
	pkceNone = "NONE"
)

var loopbackHosts = []string{"localhost", "127.0.0.1", "::1"}

// chatGPTHosts may register one-segment wildcard callbacks.
var chatGPTHosts = []string{"chat.openai.com", "chatgpt.com"}

const chatGPTCallbackPath = "/aip/g-*/oauth/callback"

func checkVerifier(method, challenge, verifier string) error {
	switch method {
	case "", pkceNone:
		return nil
	case pkceS256:
	default:
		return fmt.Errorf("unsupported code_challenge_method %q", method)
	}
	if verifier == "" {
		return errors.New("code_verifier required")
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return errors.New("invalid code_verifier")
	}
	return nil
}

// redirectAllowed reports whether candidate equals a registered URI or
// matches a registered wildcard pattern.
func redirectAllowed(candidate string, registered []string) bool {
	for _, uri := range registered {
		if uri == candidate {
			return true
		}
		if strings.Contains(uri, "*") && matchPattern(uri, candidate) {
			return true
		}
	}
	return false
}

// matchPattern compares path segments; "*" inside a segment matches any run
// of characters within that segment only.
func matchPattern(pattern, value string) bool {
	p, err := url.Parse(pattern)
	if err != nil {
		return false
	}
	v, err := url.Parse(value)
	if err != nil || v.RawQuery != "" || v.Fragment != "" {
		return false
	}
	if p.Scheme != v.Scheme || p.Host != v.Host {
		return false
	}
	pSegs := strings.Split(p.Path, "/")
	vSegs := strings.Split(v.Path, "/")
	if len(pSegs) != len(vSegs) {
		return false
	}
	for i := range pSegs {
		if !matchSegment(pSegs[i], vSegs[i]) {
			return false
		}
	}
	return true
}

func matchSegment(pattern, value string) bool {
	prefix, suffix, wild := strings.Cut(pattern, "*")
	if !wild {
		return pattern == value
	}
	return len(value) > len(prefix)+len(suffix) &&
		strings.HasPrefix(value, prefix) &&
		strings.HasSuffix(value, suffix)
}

func validateRedirectURI(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid redirect_uri: %s", raw)
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("redirect_uri must not contain a fragment: %s", raw)
	}
	if strings.Contains(raw, "*") {
		return validateWildcardRedirect(parsed)
	}
	switch {
	case parsed.Scheme == "https":
		return nil
	case parsed.Scheme == "http" && slices.Contains(loopbackHosts, parsed.Hostname()):
		return nil
	}
	return fmt.Errorf("redirect_uri must use https (or loopback http): %s", raw)
}

// validateWildcardRedirect admits only the ChatGPT connector callback shape.
func validateWildcardRedirect(parsed *url.URL) error {
	if parsed.Scheme != "https" || !slices.Contains(chatGPTHosts, parsed.Hostname()) {
		return errors.New("wildcard redirect_uri only allowed for https://chatgpt.com or https://chat.openai.com")
	}
	if parsed.Path != chatGPTCallbackPath || parsed.RawQuery != "" {
		return fmt.Errorf("wildcard redirect_uri must be %s", chatGPTCallbackPath)
	}
	return nil
}

// withParams appends query parameters to base, skipping empty values.
func withParams(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing redirect_uri: %w", err)
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newClientID() (string, error) {
	id, err := oauth.RandomString(clientIDLength)
	if err != nil {
		return "", err
	}
	return "client_" + id, nil
}

package oauth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/providentiaww/colorme-mcp/internal/oauth"
	"golang.org/x/crypto/bcrypt"
)

type registrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name"`
	ClientURI               string   `json:"client_uri"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	Scope                   string   `json:"scope"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// HandleRegister registers dynamic clients (RFC 7591).
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.DCRMode == "protected" && !s.checkDCRAccess(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if len(req.RedirectURIs) == 0 {
		http.Error(w, "redirect_uris is required", http.StatusBadRequest)
		return
	}
	for _, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if len(req.GrantTypes) == 0 {
		req.GrantTypes = []string{"authorization_code", "refresh_token"}
	}
	if len(req.ResponseTypes) == 0 {
		req.ResponseTypes = []string{"code"}
	}
	switch req.TokenEndpointAuthMethod {
	case "":
		req.TokenEndpointAuthMethod = "none"
	case "none", "client_secret_post", "client_secret_basic":
	default:
		http.Error(w, "unsupported token_endpoint_auth_method", http.StatusBadRequest)
		return
	}

	clientID, err := newClientID()
	if err != nil {
		http.Error(w, "Failed to generate client_id", http.StatusInternalServerError)
		return
	}

	var clientSecret, clientSecretHash string
	if req.TokenEndpointAuthMethod != "none" {
		clientSecret, err = oauth.RandomString(secretLength)
		if err != nil {
			http.Error(w, "Failed to generate client_secret", http.StatusInternalServerError)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to hash client_secret", http.StatusInternalServerError)
			return
		}
		clientSecretHash = string(hash)
	}

	now := s.now()
	client := &oauth.Client{
		ClientID:                clientID,
		ClientSecretHash:        clientSecretHash,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              req.GrantTypes,
		ResponseTypes:           req.ResponseTypes,
		Scope:                   req.Scope,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.store.SaveClient(r.Context(), client); err != nil {
		s.logger.Error("saving client registration", "error", err)
		http.Error(w, "Failed to store client", http.StatusInternalServerError)
		return
	}
	s.logger.Info("client registered", "client_id", clientID, "client_name", req.ClientName, "auth_method", req.TokenEndpointAuthMethod)

	resp := map[string]any{
		"client_id":                  clientID,
		"client_id_issued_at":        now.Unix(),
		"client_secret_expires_at":   0,
		"redirect_uris":              req.RedirectURIs,
		"grant_types":                req.GrantTypes,
		"response_types":             req.ResponseTypes,
		"token_endpoint_auth_method": req.TokenEndpointAuthMethod,
		"client_name":                req.ClientName,
		"scope":                      req.Scope,
	}
	if req.ClientURI != "" {
		resp["client_uri"] = req.ClientURI
	}
	if clientSecret != "" {
		resp["client_secret"] = clientSecret
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) checkDCRAccess(r *http.Request) bool {
	if s.cfg.DCRAccessToken == "" {
		return false
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.DCRAccessToken)) == 1
}

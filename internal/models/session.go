package models

// Account is the identity projection read from the shop endpoint right after
// the upstream code exchange.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SessionProps is embedded into every protocol token issued for a shop and
// read back by tool calls.
type SessionProps struct {
	ShopID      string   `json:"shopId"`
	ShopName    string   `json:"shopName"`
	ShopURL     string   `json:"shopUrl"`
	AccessToken string   `json:"accessToken"`
	Scopes      []string `json:"scopes"`
}

// NewSessionProps assembles the props for an enriched authorization.
func NewSessionProps(account Account, accessToken string, scopes []string) SessionProps {
	if scopes == nil {
		scopes = []string{}
	}
	return SessionProps{
		ShopID:      account.ID,
		ShopName:    account.Name,
		ShopURL:     account.URL,
		AccessToken: accessToken,
		Scopes:      scopes,
	}
}

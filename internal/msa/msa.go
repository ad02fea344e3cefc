// Package msa drives the Microsoft account sign-in chain that turns an
// OAuth authorization code into a Minecraft access token: Microsoft
// token, Xbox Live user token, XSTS token, then the Minecraft services
// login. See wiki.vg's Microsoft authentication scheme.
package msa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/spyglass-mc/spyglass/internal/errors"
)

const (
	authURL  = "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"
	tokenURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	scope    = "XboxLive.signin offline_access"

	xblAuthURL  = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcLoginURL  = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcProfile   = "https://api.minecraftservices.com/minecraft/profile"
)

// Endpoints overrides the upstream URLs, for tests. Zero values fall
// back to production.
type Endpoints struct {
	XBLAuth   string
	XSTSAuth  string
	MCLogin   string
	MCProfile string
}

func (e Endpoints) xbl() string {
	if e.XBLAuth != "" {
		return e.XBLAuth
	}
	return xblAuthURL
}

func (e Endpoints) xsts() string {
	if e.XSTSAuth != "" {
		return e.XSTSAuth
	}
	return xstsAuthURL
}

func (e Endpoints) login() string {
	if e.MCLogin != "" {
		return e.MCLogin
	}
	return mcLoginURL
}

func (e Endpoints) profile() string {
	if e.MCProfile != "" {
		return e.MCProfile
	}
	return mcProfile
}

// SignIn is one pending sign-in: the URL the user must visit and the
// PKCE code verifier binding the eventual authorization code to this
// request. The URL carries the matching S256 challenge, so a code
// pasted back can only be redeemed together with the verifier.
type SignIn struct {
	URL    string
	Verify string
}

// Session is a completed sign-in.
type Session struct {
	AccessToken string // Minecraft services token
	Username    string
	UUID        string
}

// Authenticator exchanges authorization codes for Minecraft sessions.
type Authenticator struct {
	OAuth     oauth2.Config
	Endpoints Endpoints
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// New builds an authenticator for an Azure application.
func New(clientID, redirectURI string) *Authenticator {
	return &Authenticator{
		OAuth: oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Scopes:      []string{scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
	}
}

func (a *Authenticator) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

// BeginSignIn mints a fresh PKCE verifier and the sign-in URL carrying
// its S256 challenge.
func (a *Authenticator) BeginSignIn() SignIn {
	verify := oauth2.GenerateVerifier()
	return SignIn{
		URL: a.OAuth.AuthCodeURL(uuid.NewString(),
			oauth2.SetAuthURLParam("response_mode", "query"),
			oauth2.S256ChallengeOption(verify)),
		Verify: verify,
	}
}

// Exchange runs the full chain from an authorization code to a Minecraft
// session. verify must be the PKCE verifier minted by the BeginSignIn
// call that produced the code. Any upstream rejection surfaces as
// EXCHANGE_FAILED.
func (a *Authenticator) Exchange(ctx context.Context, code, verify string) (*Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client())

	msToken, err := a.OAuth.Exchange(ctx, code, oauth2.VerifierOption(verify))
	if err != nil {
		return nil, errors.NewExchangeFailed(fmt.Sprintf("microsoft token: %v", err))
	}

	xblToken, userhash, err := a.xblAuthenticate(ctx, msToken.AccessToken)
	if err != nil {
		return nil, errors.NewExchangeFailed(fmt.Sprintf("xbox live token: %v", err))
	}

	xstsToken, err := a.xstsAuthorize(ctx, xblToken)
	if err != nil {
		return nil, errors.NewExchangeFailed(fmt.Sprintf("xsts token: %v", err))
	}

	mcToken, err := a.minecraftLogin(ctx, userhash, xstsToken)
	if err != nil {
		return nil, errors.NewExchangeFailed(fmt.Sprintf("minecraft login: %v", err))
	}

	name, id, err := a.minecraftProfile(ctx, mcToken)
	if err != nil {
		return nil, errors.NewExchangeFailed(fmt.Sprintf("minecraft profile: %v", err))
	}

	return &Session{AccessToken: mcToken, Username: name, UUID: id}, nil
}

func (a *Authenticator) xblAuthenticate(ctx context.Context, msToken string) (token, userhash string, err error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   "user.auth.xboxlive.com",
			"RpsTicket":  "d=" + msToken,
		},
		"RelyingParty": "http://auth.xboxlive.com",
		"TokenType":    "JWT",
	}

	var out xboxResponse
	if err := a.postJSON(ctx, a.Endpoints.xbl(), payload, &out); err != nil {
		return "", "", err
	}
	uhs := out.userhash()
	if out.Token == "" || uhs == "" {
		return "", "", fmt.Errorf("xbl response missing token or userhash")
	}
	return out.Token, uhs, nil
}

func (a *Authenticator) xstsAuthorize(ctx context.Context, xblToken string) (string, error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{xblToken},
		},
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType":    "JWT",
	}

	var out xboxResponse
	if err := a.postJSON(ctx, a.Endpoints.xsts(), payload, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("xsts response missing token")
	}
	return out.Token, nil
}

func (a *Authenticator) minecraftLogin(ctx context.Context, userhash, xstsToken string) (string, error) {
	payload := map[string]string{
		"identityToken": fmt.Sprintf("XBL3.0 x=%s;%s", userhash, xstsToken),
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := a.postJSON(ctx, a.Endpoints.login(), payload, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login response missing access token")
	}
	return out.AccessToken, nil
}

func (a *Authenticator) minecraftProfile(ctx context.Context, mcToken string) (name, id string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Endpoints.profile(), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+mcToken)

	res, err := a.client().Do(req)
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("profile request: %s", res.Status)
	}

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.ID == "" || out.Name == "" {
		return "", "", fmt.Errorf("profile response missing id or name")
	}
	return out.Name, out.ID, nil
}

// xboxResponse is shared by the XBL and XSTS endpoints.
type xboxResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

func (x xboxResponse) userhash() string {
	if len(x.DisplayClaims.XUI) == 0 {
		return ""
	}
	return x.DisplayClaims.XUI[0].UHS
}

func (a *Authenticator) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := a.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s: %s: %s", url, res.Status, snippet)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

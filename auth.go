package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"lg/free-day-go-api/internal/store"
)

const (
	oauthStateCookie = "oauth_state"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// identityProvider is the OAuth round trip: a consent URL out, an identity back.
type identityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (store.Identity, error)
}

// googleProvider signs users in with Google.
type googleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func newGoogleProvider(clientID, clientSecret, callbackURL string) *googleProvider {
	return &googleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfo,
	}
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Identify exchanges the authorization code and reads the Google profile.
func (p *googleProvider) Identify(ctx context.Context, code string) (store.Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return store.Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return store.Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return store.Identity{}, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return store.Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return store.Identity{}, errors.New("userinfo has no id")
	}
	return store.Identity{GoogleID: info.ID, Email: info.Email, Name: info.Name}, nil
}

// googleLogin starts the OAuth flow. The state is kept in a short-lived
// cookie and compared on the callback.
// GET /auth/google (public).
func (h *Handler) googleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/auth", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.identity.AuthCodeURL(state))
}

// googleCallback finishes the OAuth flow, finds or creates the user and hands
// a session token to the frontend.
// GET /auth/google/callback (public).
func (h *Handler) googleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		apiError(c, http.StatusUnauthorized, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/auth", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		apiError(c, http.StatusBadRequest, "missing code")
		return
	}

	identity, err := h.identity.Identify(c.Request.Context(), code)
	if err != nil {
		log.Printf("[googleCallback] identify: %v", err)
		apiError(c, http.StatusUnauthorized, "google sign-in failed")
		return
	}

	u, err := h.store.FindOrCreateUser(c.Request.Context(), identity)
	if err != nil {
		log.Printf("[googleCallback] find or create user: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to sign in")
		return
	}

	token, err := h.signer.Issue(u.ID)
	if err != nil {
		log.Printf("[googleCallback] issue token: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to sign in")
		return
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("isActivated", strconv.FormatBool(u.IsActivated))
	c.Redirect(http.StatusFound, h.frontendURL+"/auth-callback?"+q.Encode())
}

// authMiddleware validates the Bearer token and sets user_id on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		userID, err := h.signer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

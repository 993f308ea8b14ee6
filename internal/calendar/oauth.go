package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
)

// ErrNotConnected is returned when no Google account has been linked yet.
var ErrNotConnected = errors.New("google calendar not connected")

const tokenRowID = 1

// OAuthManager owns the business's Google OAuth credentials: the client
// config from deployment settings and the single stored token obtained
// through the admin connect flow.
type OAuthManager struct {
	Config *oauth2.Config
	DB     *pgxpool.Pool
}

// NewOAuthManager builds the manager. Returns nil if the OAuth client is not
// configured, which callers treat as "calendar integration disabled".
func NewOAuthManager(clientID, clientSecret, redirectURL string, db *pgxpool.Pool) *OAuthManager {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &OAuthManager{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				calendarapi.CalendarEventsScope,
				calendarapi.CalendarReadonlyScope,
			},
			Endpoint: google.Endpoint,
		},
		DB: db,
	}
}

// AuthCodeURL returns the consent URL for the admin connect flow.
func (m *OAuthManager) AuthCodeURL(state string) string {
	return m.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (m *OAuthManager) Exchange(ctx context.Context, code string) error {
	token, err := m.Config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return m.saveToken(ctx, token)
}

// TokenSource returns an auto-refreshing source backed by the stored token.
func (m *OAuthManager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := m.loadToken(ctx)
	if err != nil {
		return nil, err
	}
	return m.Config.TokenSource(ctx, tok), nil
}

// Connected reports whether a token has been stored.
func (m *OAuthManager) Connected(ctx context.Context) bool {
	_, err := m.loadToken(ctx)
	return err == nil
}

func (m *OAuthManager) saveToken(ctx context.Context, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal oauth token: %w", err)
	}
	q := `INSERT INTO google_tokens (id, token, updated_at) VALUES ($1,$2,now())
	      ON CONFLICT (id) DO UPDATE SET token=EXCLUDED.token, updated_at=now()`
	if _, err := m.DB.Exec(ctx, q, tokenRowID, raw); err != nil {
		return fmt.Errorf("store oauth token: %w", err)
	}
	return nil
}

func (m *OAuthManager) loadToken(ctx context.Context) (*oauth2.Token, error) {
	var raw []byte
	err := m.DB.QueryRow(ctx, `SELECT token FROM google_tokens WHERE id=$1`, tokenRowID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

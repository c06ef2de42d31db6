package esjzone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/handiism/bookfetch/internal/httpx"
)

// BaseURL is the site root used for login, cookie validation, and
// resolving root-relative resource links.
const BaseURL = "https://www.esjzone.one"

const (
	loginPath   = "/inc/mem_login.php"
	profilePath = "/my/profile.html"

	// loginRedirectSignature appears in pages served to logged-out
	// sessions; its presence means the cookies are no longer valid.
	loginRedirectSignature = "window.location.href='/my/login';"
)

// ErrLoginFailed is returned when the login handshake completes but the
// session still fails cookie validation.
var ErrLoginFailed = errors.New("login rejected by site")

// Session handles the authenticated side of the site: the login
// handshake and cookie validation against the profile page.
type Session struct {
	client *httpx.Client
	log    *slog.Logger
}

// NewSession wraps the shared HTTP client.
func NewSession(client *httpx.Client, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{client: client, log: log}
}

// Login performs the form login handshake and validates the resulting
// session, returning the logged-in username.
func (s *Session) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", errors.New("missing account credentials")
	}

	form := url.Values{
		"email":       {email},
		"pwd":         {password},
		"remember_me": {"on"},
	}
	headers := map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Origin":           BaseURL,
		"Referer":          BaseURL + "/login",
	}

	s.log.Info("attempting account login", "email", maskEmail(email))
	body, err := s.client.PostForm(ctx, BaseURL+loginPath, form, headers)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}

	// The endpoint answers JSON on success, but not reliably; fall
	// through to cookie validation when the body is not JSON.
	var resp struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Status != 0 && resp.Status != 200 {
		s.log.Warn("login response rejected", "status", resp.Status, "msg", resp.Msg)
		return "", ErrLoginFailed
	}

	username, err := s.ValidateCookie(ctx)
	if err != nil {
		return "", err
	}
	if username == "" {
		return "", ErrLoginFailed
	}
	s.log.Info("login validated", "username", username)
	return username, nil
}

// ValidateCookie checks whether the session cookies are still accepted,
// returning the logged-in username or "" when the session is anonymous.
// Invalid cookies are cleared from the session.
func (s *Session) ValidateCookie(ctx context.Context) (string, error) {
	page, err := s.client.GetString(ctx, BaseURL+profilePath)
	if err != nil {
		return "", fmt.Errorf("fetch profile page: %w", err)
	}

	if strings.Contains(page, loginRedirectSignature) {
		s.log.Warn("session cookies expired, clearing")
		s.client.ClearCookies()
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse profile page: %w", err)
	}
	username := strings.TrimSpace(doc.Find("h6.user-name").First().Text())
	if username == "" {
		s.log.Warn("no login state detected on profile page")
	}
	return username, nil
}

func maskEmail(email string) string {
	if len(email) <= 3 {
		return "***"
	}
	return email[:3] + "***"
}

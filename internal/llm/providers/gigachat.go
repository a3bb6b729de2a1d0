package providers

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/interprep/internal/llm"
)

const (
	defaultGigaChatURL      = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultGigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultGigaChatScope    = "GIGACHAT_API_PERS"

	// Tokens live ~30 minutes; refresh this early to avoid racing expiry.
	tokenRefreshMargin = 60 * time.Second
)

// GigaChatProvider implements the Sber GigaChat API. The chat surface
// is OpenAI-compatible; authorization is not: an authorization key is
// exchanged for a short-lived access token at the NGW OAuth endpoint,
// cached here until shortly before expiry.
//
// Environment:
//
//	GIGACHAT_CREDENTIALS  base64 authorization key (required)
//	GIGACHAT_SCOPE        OAuth scope, default GIGACHAT_API_PERS
//	GIGACHAT_OAUTH_URL    token endpoint override
//	GIGACHAT_INSECURE_TLS "true" skips TLS verification (Russian CA chains)
type GigaChatProvider struct {
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	oauthClient *http.Client
}

func init() {
	llm.RegisterProvider(&GigaChatProvider{})
}

// Name returns the provider identifier.
func (g *GigaChatProvider) Name() string {
	return "gigachat"
}

// BuildURL constructs the chat completions endpoint.
func (g *GigaChatProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = defaultGigaChatURL
	}
	return chatCompletionsURL(baseURL)
}

// SetHeaders attaches the cached access token, exchanging the
// authorization key for a fresh one when needed.
func (g *GigaChatProvider) SetHeaders(ctx context.Context, req *http.Request) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("gigachat token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// BuildRequestBody creates the OpenAI-compatible request body.
func (g *GigaChatProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return buildChatBody(model, messages, temperature, maxTokens)
}

// ParseResponse extracts content from the GigaChat response.
func (g *GigaChatProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return parseChatResponse(body, model)
}

type gigaChatToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

func (g *GigaChatProvider) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry.Add(-tokenRefreshMargin)) {
		return g.token, nil
	}

	creds := os.Getenv("GIGACHAT_CREDENTIALS")
	if creds == "" {
		return "", fmt.Errorf("GIGACHAT_CREDENTIALS is not set")
	}

	oauthURL := os.Getenv("GIGACHAT_OAUTH_URL")
	if oauthURL == "" {
		oauthURL = defaultGigaChatOAuthURL
	}
	scope := os.Getenv("GIGACHAT_SCOPE")
	if scope == "" {
		scope = defaultGigaChatScope
	}

	form := url.Values{"scope": {scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := g.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok gigaChatToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	g.token = tok.AccessToken
	g.tokenExpiry = time.UnixMilli(tok.ExpiresAt)
	return g.token, nil
}

func (g *GigaChatProvider) client() *http.Client {
	if g.oauthClient == nil {
		transport := http.DefaultTransport
		if os.Getenv("GIGACHAT_INSECURE_TLS") == "true" {
			transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
		g.oauthClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		}
	}
	return g.oauthClient
}

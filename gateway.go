package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// loginSuccessMessage is the success marker the backend couples with HTTP 200.
const loginSuccessMessage = "Login successful"

const networkErrorMessage = "Network error. Please check your connection and try again."

// LoginResult is the discriminated outcome of a login call.
type LoginResult struct {
	Success bool
	Token   string
	User    *APIUser
	Roles   []string
	Message string
}

// VerifyResult is the discriminated outcome of a token verification call.
type VerifyResult struct {
	Success bool
	User    *APIUser
	Message string
}

// ChangePasswordPayload is the body for the password change endpoint.
type ChangePasswordPayload struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// ChangePasswordResult carries the backend's change-password envelope.
type ChangePasswordResult struct {
	Success bool
	Message string
	Errors  map[string]any
}

// HTTPGateway is the only network-facing component. Every call resolves into
// a result struct; transport failures map to the generic network message and
// nothing is ever thrown past this boundary.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

func NewHTTPGateway(cfg Config) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.GetAPIBaseURL(), "/"),
		client:  &http.Client{Timeout: cfg.GetRequestTimeout()},
		logger:  defLogger{},
	}
}

func (g *HTTPGateway) WithLogger(logger Logger) *HTTPGateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func (g *HTTPGateway) WithHTTPClient(client *http.Client) *HTTPGateway {
	if client != nil {
		g.client = client
	}
	return g
}

type loginResponse struct {
	Message string   `json:"message"`
	User    *APIUser `json:"user"`
	Token   string   `json:"token"`
	Roles   []string `json:"roles"`
}

// Login POSTs the credentials. Success is HTTP 200 plus the success marker in
// the payload; anything else, including transport failure, maps to
// Success=false with the best message available.
func (g *HTTPGateway) Login(ctx context.Context, creds Credentials) *LoginResult {
	body, err := json.Marshal(map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		g.logger.Error("login payload marshal failed", "error", err)
		return &LoginResult{Message: networkErrorMessage}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		g.logger.Error("login request build failed", "error", err)
		return &LoginResult{Message: networkErrorMessage}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("login request failed", "error", err)
		return &LoginResult{Message: networkErrorMessage}
	}
	defer resp.Body.Close()

	payload := loginResponse{}
	if err := decodeBody(resp.Body, &payload); err != nil {
		g.logger.Error("login response decode failed", "error", err)
		return &LoginResult{Message: networkErrorMessage}
	}

	if resp.StatusCode == http.StatusOK && payload.Message == loginSuccessMessage {
		return &LoginResult{
			Success: true,
			Token:   payload.Token,
			User:    payload.User,
			Roles:   payload.Roles,
			Message: payload.Message,
		}
	}

	message := payload.Message
	if message == "" {
		message = "Login failed"
	}
	return &LoginResult{Message: message}
}

type meResponse struct {
	User *APIUser `json:"user"`
	Data struct {
		User *APIUser `json:"user"`
	} `json:"data"`
	Message string `json:"message"`
}

// VerifyToken GETs the current profile with the token as a bearer credential.
// The user may arrive at the top level or nested under data.
func (g *HTTPGateway) VerifyToken(ctx context.Context, token string) *VerifyResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/auth/me", nil)
	if err != nil {
		g.logger.Error("verify request build failed", "error", err)
		return &VerifyResult{Message: "Network error during token verification"}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("verify request failed", "error", err)
		return &VerifyResult{Message: "Network error during token verification"}
	}
	defer resp.Body.Close()

	payload := meResponse{}
	if err := decodeBody(resp.Body, &payload); err != nil {
		g.logger.Error("verify response decode failed", "error", err)
		return &VerifyResult{Message: "Network error during token verification"}
	}

	if resp.StatusCode != http.StatusOK {
		message := payload.Message
		if message == "" {
			message = "Token verification failed"
		}
		return &VerifyResult{Message: message}
	}

	user := payload.User
	if user == nil {
		user = payload.Data.User
	}
	if user == nil {
		return &VerifyResult{Message: "Token verification failed"}
	}

	return &VerifyResult{Success: true, User: user}
}

type changePasswordResponse struct {
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

// ChangePassword PUTs the password change with the bearer token attached.
func (g *HTTPGateway) ChangePassword(ctx context.Context, token string, payload ChangePasswordPayload) *ChangePasswordResult {
	body, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("change password payload marshal failed", "error", err)
		return &ChangePasswordResult{Message: networkErrorMessage}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.baseURL+"/auth/change_password", bytes.NewReader(body))
	if err != nil {
		g.logger.Error("change password request build failed", "error", err)
		return &ChangePasswordResult{Message: networkErrorMessage}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("change password request failed", "error", err)
		return &ChangePasswordResult{Message: networkErrorMessage}
	}
	defer resp.Body.Close()

	decoded := changePasswordResponse{}
	if err := decodeBody(resp.Body, &decoded); err != nil {
		g.logger.Error("change password response decode failed", "error", err)
		return &ChangePasswordResult{Message: networkErrorMessage}
	}

	if resp.StatusCode == http.StatusOK {
		message := decoded.Message
		if message == "" {
			message = "Password changed successfully"
		}
		return &ChangePasswordResult{Success: true, Message: message}
	}

	message := decoded.Message
	if message == "" {
		message = "Failed to change password"
	}
	return &ChangePasswordResult{Message: message, Errors: decoded.Errors}
}

func decodeBody(r io.Reader, into any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

// Transport wraps base with bearer signing for every API request except the
// login call itself. CRUD service clients share one http.Client built on it
// so the current token rides along automatically.
func Transport(base http.RoundTripper, source TokenSource) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTransport{base: base, source: source}
}

type bearerTransport struct {
	base   http.RoundTripper
	source TokenSource
}

var unsignedPaths = []string{"/auth/login"}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.source != nil {
		token = t.source.Token()
	}
	if token == "" || skipSigning(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	signed := req.Clone(req.Context())
	signed.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(signed)
}

func skipSigning(path string) bool {
	for _, p := range unsignedPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

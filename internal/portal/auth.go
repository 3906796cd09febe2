package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nhle/pgportal/internal/model"
)

// ErrMissingToken is returned when an OAuth callback carries no token.
var ErrMissingToken = errors.New("callback does not carry a token")

// Login authenticates with email, password and role via POST /api/login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var resp loginResponse
	if err := c.post(ctx, "/api/login", req, &resp); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", req.Email, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("logging in as %s: %w", req.Email, ErrMissingToken)
	}

	role := resp.Role
	if role == "" {
		role = resp.User.Role
	}
	if role == "" {
		role = req.Role
	}

	// Non-students never need a study plan; treat an absent flag as set.
	hasPlan := role != model.RoleStudent
	if resp.HasStudyPlan != nil {
		hasPlan = *resp.HasStudyPlan
	}

	return &LoginResult{
		Token:        resp.Token,
		User:         resp.User,
		Role:         role,
		HasStudyPlan: hasPlan,
		Unread:       notificationsToModel(resp.UnreadNotifications),
	}, nil
}

// CurrentUser fetches the identity behind the current token via GET /api/user.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.get(ctx, "/api/user", &user); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &user, nil
}

// GoogleLoginURL returns the URL that starts the Google OAuth flow.
func (c *Client) GoogleLoginURL() string {
	return c.baseURL + "/auth/google"
}

// ParseOAuthCallback extracts the token and role query parameters from
// the URL the portal redirects to after Google sign-in.
func ParseOAuthCallback(raw string) (string, model.Role, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parsing callback URL: %w", err)
	}
	q := u.Query()
	token := q.Get("token")
	if token == "" {
		return "", "", ErrMissingToken
	}
	role := model.Role(q.Get("role"))
	if !role.Valid() {
		return "", "", fmt.Errorf("callback carries unknown role %q", role)
	}
	return token, role, nil
}

// AuthorizeChannel signs a private channel subscription for the given
// socket via the broadcasting auth endpoint.
func (c *Client) AuthorizeChannel(
	ctx context.Context,
	authPath string,
	socketID string,
	channel string,
) (string, error) {
	body := map[string]string{
		"socket_id":    socketID,
		"channel_name": channel,
	}
	var resp struct {
		Auth string `json:"auth"`
	}
	if err := c.post(ctx, authPath, body, &resp); err != nil {
		return "", fmt.Errorf("authorizing channel %s: %w", channel, err)
	}
	if resp.Auth == "" {
		return "", fmt.Errorf("authorizing channel %s: empty signature", channel)
	}
	return resp.Auth, nil
}

// CompleteOAuth finishes a Google sign-in: it adopts token, fetches the
// identity behind it and the notifications that arrived since the last
// login. If the portal rejects token the previous credential is kept.
func (c *Client) CompleteOAuth(ctx context.Context, token string, role model.Role) (*LoginResult, error) {
	prev := c.Token()
	c.SetToken(token)

	var who struct {
		model.User
		HasStudyPlan *bool `json:"has_study_plan"`
	}
	if err := c.get(ctx, "/api/user", &who); err != nil {
		c.SetToken(prev)
		return nil, fmt.Errorf("completing sign-in: %w", err)
	}

	hasPlan := role != model.RoleStudent
	if who.HasStudyPlan != nil {
		hasPlan = *who.HasStudyPlan
	}

	unread, err := c.NotificationsSinceLastLogin(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("fetching notifications since last login")
	}

	return &LoginResult{
		Token:        token,
		User:         who.User,
		Role:         role,
		HasStudyPlan: hasPlan,
		Unread:       unread,
	}, nil
}

// Validate confirms token by fetching the identity behind it. On success
// the client keeps using token; on failure the previous credential is
// restored.
func (c *Client) Validate(ctx context.Context, token string) (*model.User, error) {
	prev := c.Token()
	c.SetToken(token)
	user, err := c.CurrentUser(ctx)
	if err != nil {
		c.SetToken(prev)
		return nil, err
	}
	return user, nil
}

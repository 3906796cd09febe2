package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nhle/pgportal/internal/model"
)

// Notifications fetches the full notification list.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	return c.notificationList(ctx, "/api/notifications")
}

// NotificationsSinceLastLogin fetches notifications created since the
// previous login, used to surface missed alerts.
func (c *Client) NotificationsSinceLastLogin(ctx context.Context) ([]model.Notification, error) {
	return c.notificationList(ctx, "/api/notifications/since-last-login")
}

func (c *Client) notificationList(ctx context.Context, path string) ([]model.Notification, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	var ws []wireNotification
	if err := json.Unmarshal(unwrapData(raw), &ws); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return notificationsToModel(ws), nil
}

// UnreadCount returns the authoritative unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.get(ctx, "/api/notifications/unread-count", &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return resp.value(), nil
}

// MarkRead marks a notification as read on the server.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := "/api/notifications/mark-as-read/" + url.PathEscape(id)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkUnread marks a notification as unread on the server.
func (c *Client) MarkUnread(ctx context.Context, id string) error {
	path := "/api/notifications/mark-as-unread/" + url.PathEscape(id)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s unread: %w", id, err)
	}
	return nil
}

package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/pgportal/internal/model"
)

// Review decisions accepted by the progress update endpoints.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionPending = "pending"
)

// ProgressUpdates fetches the progress updates visible to the current user.
func (c *Client) ProgressUpdates(ctx context.Context) ([]model.ProgressUpdate, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/progress-updates", &raw); err != nil {
		return nil, fmt.Errorf("fetching progress updates: %w", err)
	}
	var ws []wireProgressUpdate
	if err := json.Unmarshal(unwrapData(raw), &ws); err != nil {
		return nil, fmt.Errorf("decoding progress updates: %w", err)
	}
	out := make([]model.ProgressUpdate, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toModel())
	}
	return out, nil
}

// ReviewProgressUpdate applies a review decision to a progress update.
func (c *Client) ReviewProgressUpdate(ctx context.Context, id int64, decision string) error {
	switch decision {
	case DecisionApprove, DecisionReject, DecisionPending:
	default:
		return fmt.Errorf("unknown review decision %q", decision)
	}
	path := fmt.Sprintf("/api/progress-updates/%d/%s", id, decision)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("reviewing progress update %d: %w", id, err)
	}
	return nil
}

// StatusForDecision maps a review decision onto the resulting status.
func StatusForDecision(decision string) string {
	switch decision {
	case DecisionApprove:
		return model.ProgressApproved
	case DecisionReject:
		return model.ProgressRejected
	default:
		return model.ProgressPending
	}
}

package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/pgportal/internal/model"
)

// Semesters lists all semesters.
func (c *Client) Semesters(ctx context.Context) ([]model.Semester, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/semesters", &raw); err != nil {
		return nil, fmt.Errorf("fetching semesters: %w", err)
	}
	var ws []wireSemester
	if err := json.Unmarshal(unwrapData(raw), &ws); err != nil {
		return nil, fmt.Errorf("decoding semesters: %w", err)
	}
	out := make([]model.Semester, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toModel())
	}
	return out, nil
}

// Semester fetches a single semester.
func (c *Client) Semester(ctx context.Context, id int64) (*model.Semester, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/api/semesters/%d", id), &raw); err != nil {
		return nil, fmt.Errorf("fetching semester %d: %w", id, err)
	}
	return decodeSemester(raw)
}

// CreateSemester creates a semester and returns the stored record.
func (c *Client) CreateSemester(ctx context.Context, s model.Semester) (*model.Semester, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "/api/semesters", newSemesterBody(s), &raw); err != nil {
		return nil, fmt.Errorf("creating semester: %w", err)
	}
	return decodeSemester(raw)
}

// UpdateSemester replaces a semester's fields.
func (c *Client) UpdateSemester(ctx context.Context, s model.Semester) (*model.Semester, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/api/semesters/%d", s.ID)
	if err := c.put(ctx, path, newSemesterBody(s), &raw); err != nil {
		return nil, fmt.Errorf("updating semester %d: %w", s.ID, err)
	}
	return decodeSemester(raw)
}

// DeleteSemester removes a semester.
func (c *Client) DeleteSemester(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/semesters/%d", id)); err != nil {
		return fmt.Errorf("deleting semester %d: %w", id, err)
	}
	return nil
}

func decodeSemester(raw json.RawMessage) (*model.Semester, error) {
	var w wireSemester
	if err := json.Unmarshal(unwrapData(raw), &w); err != nil {
		return nil, fmt.Errorf("decoding semester: %w", err)
	}
	s := w.toModel()
	return &s, nil
}

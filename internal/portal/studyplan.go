package portal

import (
	"context"
	"fmt"
)

// StudyPlanRequest registers a student's study plan.
type StudyPlanRequest struct {
	ResearchTitle   string `json:"research_title"`
	SupervisorEmail string `json:"supervisor_email"`
	SemesterID      int64  `json:"semester_id"`
}

// RegisterStudyPlan submits req via POST /api/study-plans.
func (c *Client) RegisterStudyPlan(ctx context.Context, req StudyPlanRequest) error {
	if err := c.post(ctx, "/api/study-plans", req, nil); err != nil {
		return fmt.Errorf("registering study plan: %w", err)
	}
	return nil
}

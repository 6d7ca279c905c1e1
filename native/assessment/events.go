package assessment

import (
	"encoding/hex"
	"strconv"

	"auctionhouse/core/types"
)

const (
	EventTypeProjectCreated = "assessment.project_created"
	EventTypeTaskSubmitted  = "assessment.task_submitted"
	EventTypeTaskReviewed   = "assessment.task_reviewed"
)

// NewProjectCreatedEvent returns the payload emitted for a new project.
func NewProjectCreatedEvent(p *Project) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["id"] = strconv.FormatUint(p.ID, 10)
		attrs["owner"] = hex.EncodeToString(p.Owner[:])
		attrs["verifier"] = hex.EncodeToString(p.Verifier[:])
		attrs["title"] = p.Title
	}
	return &types.Event{Type: EventTypeProjectCreated, Attributes: attrs}
}

// NewTaskSubmittedEvent returns the payload emitted for a new submission.
func NewTaskSubmittedEvent(s *Submission) *types.Event {
	return &types.Event{Type: EventTypeTaskSubmitted, Attributes: submissionAttrs(s)}
}

// NewTaskReviewedEvent returns the payload emitted when the verifier decides.
func NewTaskReviewedEvent(s *Submission) *types.Event {
	return &types.Event{Type: EventTypeTaskReviewed, Attributes: submissionAttrs(s)}
}

func submissionAttrs(s *Submission) map[string]string {
	attrs := make(map[string]string)
	if s == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(s.ID, 10)
	attrs["projectId"] = strconv.FormatUint(s.ProjectID, 10)
	attrs["worker"] = hex.EncodeToString(s.Worker[:])
	attrs["hash"] = hex.EncodeToString(s.Hash[:])
	attrs["status"] = strconv.FormatUint(uint64(s.Status), 10)
	return attrs
}

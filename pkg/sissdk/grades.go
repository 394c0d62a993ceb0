package sissdk

import (
	"context"
	"fmt"
	"net/url"
)

// GradesService manages grade entries.
type GradesService struct {
	client *Client
}

func gradePath(id string) string { return "/grades/" + url.PathEscape(id) }

// List returns grades matching opts; filter by StudentID or ClassID.
func (s *GradesService) List(ctx context.Context, opts ListOptions) ([]Grade, *Pagination, error) {
	resp, err := s.client.Get(ctx, "/grades", opts.Query())
	if err != nil {
		return nil, nil, err
	}

	var grades []Grade
	if err := resp.Decode(&grades); err != nil {
		return nil, nil, fmt.Errorf("decode grades list: %w", err)
	}
	return grades, resp.Pagination, nil
}

// Get fetches one grade entry by ID.
func (s *GradesService) Get(ctx context.Context, id string) (*Grade, error) {
	resp, err := s.client.Get(ctx, gradePath(id), nil)
	if err != nil {
		return nil, err
	}

	var grade Grade
	if err := resp.Decode(&grade); err != nil {
		return nil, fmt.Errorf("decode grade: %w", err)
	}
	return &grade, nil
}

// Create records a new grade.
func (s *GradesService) Create(ctx context.Context, in Grade) (*Grade, error) {
	resp, err := s.client.Post(ctx, "/grades", in)
	if err != nil {
		return nil, err
	}

	var grade Grade
	if err := resp.Decode(&grade); err != nil {
		return nil, fmt.Errorf("decode created grade: %w", err)
	}
	return &grade, nil
}

// Update replaces a grade entry.
func (s *GradesService) Update(ctx context.Context, id string, in Grade) (*Grade, error) {
	resp, err := s.client.Put(ctx, gradePath(id), in)
	if err != nil {
		return nil, err
	}

	var grade Grade
	if err := resp.Decode(&grade); err != nil {
		return nil, fmt.Errorf("decode updated grade: %w", err)
	}
	return &grade, nil
}

// Delete removes a grade entry.
func (s *GradesService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, gradePath(id), nil)
	return err
}

// StudentSummary returns per-class grade summaries for one student.
func (s *GradesService) StudentSummary(ctx context.Context, studentID string) (map[string]any, error) {
	resp, err := s.client.Get(ctx, "/grades/students/"+url.PathEscape(studentID)+"/summary", nil)
	if err != nil {
		return nil, err
	}

	summary := map[string]any{}
	if err := resp.Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode grade summary: %w", err)
	}
	return summary, nil
}

package sissdk

import (
	"context"
	"fmt"
	"net/url"
)

// TeachersService manages teacher records.
type TeachersService struct {
	client *Client
}

func teacherPath(id string) string { return "/teachers/" + url.PathEscape(id) }

// List returns teachers matching opts along with pagination info.
func (s *TeachersService) List(ctx context.Context, opts ListOptions) ([]Teacher, *Pagination, error) {
	resp, err := s.client.Get(ctx, "/teachers", opts.Query())
	if err != nil {
		return nil, nil, err
	}

	var teachers []Teacher
	if err := resp.Decode(&teachers); err != nil {
		return nil, nil, fmt.Errorf("decode teachers list: %w", err)
	}
	return teachers, resp.Pagination, nil
}

// Get fetches one teacher by ID.
func (s *TeachersService) Get(ctx context.Context, id string) (*Teacher, error) {
	resp, err := s.client.Get(ctx, teacherPath(id), nil)
	if err != nil {
		return nil, err
	}

	var teacher Teacher
	if err := resp.Decode(&teacher); err != nil {
		return nil, fmt.Errorf("decode teacher: %w", err)
	}
	return &teacher, nil
}

// Create adds a new teacher.
func (s *TeachersService) Create(ctx context.Context, in Teacher) (*Teacher, error) {
	resp, err := s.client.Post(ctx, "/teachers", in)
	if err != nil {
		return nil, err
	}

	var teacher Teacher
	if err := resp.Decode(&teacher); err != nil {
		return nil, fmt.Errorf("decode created teacher: %w", err)
	}
	return &teacher, nil
}

// Update replaces a teacher record.
func (s *TeachersService) Update(ctx context.Context, id string, in Teacher) (*Teacher, error) {
	resp, err := s.client.Put(ctx, teacherPath(id), in)
	if err != nil {
		return nil, err
	}

	var teacher Teacher
	if err := resp.Decode(&teacher); err != nil {
		return nil, fmt.Errorf("decode updated teacher: %w", err)
	}
	return &teacher, nil
}

// Delete removes a teacher record.
func (s *TeachersService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, teacherPath(id), nil)
	return err
}

// Classes lists the classes a teacher is assigned to.
func (s *TeachersService) Classes(ctx context.Context, id string) ([]Class, error) {
	resp, err := s.client.Get(ctx, teacherPath(id)+"/classes", nil)
	if err != nil {
		return nil, err
	}

	var classes []Class
	if err := resp.Decode(&classes); err != nil {
		return nil, fmt.Errorf("decode teacher classes: %w", err)
	}
	return classes, nil
}

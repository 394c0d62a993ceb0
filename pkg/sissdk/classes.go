package sissdk

import (
	"context"
	"fmt"
	"net/url"
)

// ClassesService manages class sections.
type ClassesService struct {
	client *Client
}

func classPath(id string) string { return "/classes/" + url.PathEscape(id) }

// List returns classes matching opts along with pagination info.
func (s *ClassesService) List(ctx context.Context, opts ListOptions) ([]Class, *Pagination, error) {
	resp, err := s.client.Get(ctx, "/classes", opts.Query())
	if err != nil {
		return nil, nil, err
	}

	var classes []Class
	if err := resp.Decode(&classes); err != nil {
		return nil, nil, fmt.Errorf("decode classes list: %w", err)
	}
	return classes, resp.Pagination, nil
}

// Get fetches one class by ID.
func (s *ClassesService) Get(ctx context.Context, id string) (*Class, error) {
	resp, err := s.client.Get(ctx, classPath(id), nil)
	if err != nil {
		return nil, err
	}

	var class Class
	if err := resp.Decode(&class); err != nil {
		return nil, fmt.Errorf("decode class: %w", err)
	}
	return &class, nil
}

// Create opens a new class section.
func (s *ClassesService) Create(ctx context.Context, in Class) (*Class, error) {
	resp, err := s.client.Post(ctx, "/classes", in)
	if err != nil {
		return nil, err
	}

	var class Class
	if err := resp.Decode(&class); err != nil {
		return nil, fmt.Errorf("decode created class: %w", err)
	}
	return &class, nil
}

// Update replaces a class section.
func (s *ClassesService) Update(ctx context.Context, id string, in Class) (*Class, error) {
	resp, err := s.client.Put(ctx, classPath(id), in)
	if err != nil {
		return nil, err
	}

	var class Class
	if err := resp.Decode(&class); err != nil {
		return nil, fmt.Errorf("decode updated class: %w", err)
	}
	return &class, nil
}

// Delete removes a class section.
func (s *ClassesService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, classPath(id), nil)
	return err
}

// Enroll adds a student to the class roster.
func (s *ClassesService) Enroll(ctx context.Context, classID, studentID string) error {
	_, err := s.client.Post(ctx, classPath(classID)+"/enrollments", map[string]string{"studentId": studentID})
	return err
}

// Unenroll removes a student from the class roster.
func (s *ClassesService) Unenroll(ctx context.Context, classID, studentID string) error {
	_, err := s.client.Delete(ctx, classPath(classID)+"/enrollments/"+url.PathEscape(studentID), nil)
	return err
}

// Roster lists the students enrolled in a class.
func (s *ClassesService) Roster(ctx context.Context, classID string) ([]Student, error) {
	resp, err := s.client.Get(ctx, classPath(classID)+"/enrollments", nil)
	if err != nil {
		return nil, err
	}

	var students []Student
	if err := resp.Decode(&students); err != nil {
		return nil, fmt.Errorf("decode class roster: %w", err)
	}
	return students, nil
}

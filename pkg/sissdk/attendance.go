package sissdk

import (
	"context"
	"fmt"
	"net/url"
)

// AttendanceService manages attendance records.
type AttendanceService struct {
	client *Client
}

func attendancePath(id string) string { return "/attendance/" + url.PathEscape(id) }

// List returns attendance records matching opts; filter by StudentID,
// ClassID or Date.
func (s *AttendanceService) List(ctx context.Context, opts ListOptions) ([]Attendance, *Pagination, error) {
	resp, err := s.client.Get(ctx, "/attendance", opts.Query())
	if err != nil {
		return nil, nil, err
	}

	var records []Attendance
	if err := resp.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("decode attendance list: %w", err)
	}
	return records, resp.Pagination, nil
}

// Get fetches one attendance record by ID.
func (s *AttendanceService) Get(ctx context.Context, id string) (*Attendance, error) {
	resp, err := s.client.Get(ctx, attendancePath(id), nil)
	if err != nil {
		return nil, err
	}

	var record Attendance
	if err := resp.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode attendance record: %w", err)
	}
	return &record, nil
}

// Create marks attendance for one student in one class period.
func (s *AttendanceService) Create(ctx context.Context, in Attendance) (*Attendance, error) {
	resp, err := s.client.Post(ctx, "/attendance", in)
	if err != nil {
		return nil, err
	}

	var record Attendance
	if err := resp.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode created attendance record: %w", err)
	}
	return &record, nil
}

// Update replaces an attendance record.
func (s *AttendanceService) Update(ctx context.Context, id string, in Attendance) (*Attendance, error) {
	resp, err := s.client.Put(ctx, attendancePath(id), in)
	if err != nil {
		return nil, err
	}

	var record Attendance
	if err := resp.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode updated attendance record: %w", err)
	}
	return &record, nil
}

// Delete removes an attendance record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, attendancePath(id), nil)
	return err
}

// BulkCreate marks attendance for a whole class period in one call.
func (s *AttendanceService) BulkCreate(ctx context.Context, records []Attendance) (*BulkResult, error) {
	resp, err := s.client.Post(ctx, "/attendance/bulk", map[string]any{"records": records})
	if err != nil {
		return nil, err
	}

	var result BulkResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bulk result: %w", err)
	}
	return &result, nil
}

package sissdk

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// StudentsService manages student records.
type StudentsService struct {
	client *Client
}

func studentPath(id string) string { return "/students/" + url.PathEscape(id) }

// List returns students matching opts along with pagination info.
func (s *StudentsService) List(ctx context.Context, opts ListOptions) ([]Student, *Pagination, error) {
	resp, err := s.client.Get(ctx, "/students", opts.Query())
	if err != nil {
		return nil, nil, err
	}

	var students []Student
	if err := resp.Decode(&students); err != nil {
		return nil, nil, fmt.Errorf("decode students list: %w", err)
	}
	return students, resp.Pagination, nil
}

// Search is List with a free-text search term.
func (s *StudentsService) Search(ctx context.Context, term string, opts ListOptions) ([]Student, *Pagination, error) {
	opts.Search = term
	return s.List(ctx, opts)
}

// Get fetches one student by ID.
func (s *StudentsService) Get(ctx context.Context, id string) (*Student, error) {
	resp, err := s.client.Get(ctx, studentPath(id), nil)
	if err != nil {
		return nil, err
	}

	var student Student
	if err := resp.Decode(&student); err != nil {
		return nil, fmt.Errorf("decode student: %w", err)
	}
	return &student, nil
}

// Create enrolls a new student.
func (s *StudentsService) Create(ctx context.Context, in Student) (*Student, error) {
	resp, err := s.client.Post(ctx, "/students", in)
	if err != nil {
		return nil, err
	}

	var student Student
	if err := resp.Decode(&student); err != nil {
		return nil, fmt.Errorf("decode created student: %w", err)
	}
	return &student, nil
}

// Update replaces a student record.
func (s *StudentsService) Update(ctx context.Context, id string, in Student) (*Student, error) {
	resp, err := s.client.Put(ctx, studentPath(id), in)
	if err != nil {
		return nil, err
	}

	var student Student
	if err := resp.Decode(&student); err != nil {
		return nil, fmt.Errorf("decode updated student: %w", err)
	}
	return &student, nil
}

// Patch partially updates a student record.
func (s *StudentsService) Patch(ctx context.Context, id string, fields map[string]any) (*Student, error) {
	resp, err := s.client.Patch(ctx, studentPath(id), fields)
	if err != nil {
		return nil, err
	}

	var student Student
	if err := resp.Decode(&student); err != nil {
		return nil, fmt.Errorf("decode patched student: %w", err)
	}
	return &student, nil
}

// Delete removes a student record.
func (s *StudentsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, studentPath(id), nil)
	return err
}

// BulkCreate enrolls several students in one call.
func (s *StudentsService) BulkCreate(ctx context.Context, students []Student) (*BulkResult, error) {
	resp, err := s.client.Post(ctx, "/students/bulk", map[string]any{"students": students})
	if err != nil {
		return nil, err
	}

	var result BulkResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bulk result: %w", err)
	}
	return &result, nil
}

// BulkUpdate applies several partial updates, each carrying its target id.
func (s *StudentsService) BulkUpdate(ctx context.Context, updates []map[string]any) (*BulkResult, error) {
	resp, err := s.client.Put(ctx, "/students/bulk", map[string]any{"updates": updates})
	if err != nil {
		return nil, err
	}

	var result BulkResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bulk result: %w", err)
	}
	return &result, nil
}

// BulkDelete removes several students by ID.
func (s *StudentsService) BulkDelete(ctx context.Context, ids []string) (*BulkResult, error) {
	resp, err := s.client.Delete(ctx, "/students/bulk", map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}

	var result BulkResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bulk result: %w", err)
	}
	return &result, nil
}

// Statistics returns the aggregate counters the dashboard shows.
func (s *StudentsService) Statistics(ctx context.Context) (map[string]any, error) {
	resp, err := s.client.Get(ctx, "/students/statistics", nil)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{}
	if err := resp.Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	return stats, nil
}

// UploadDocument attaches a document to a student record.
func (s *StudentsService) UploadDocument(ctx context.Context, id, fileName string, file io.Reader, documentType, description string) (*Document, error) {
	fields := map[string]string{"documentType": documentType}
	if description != "" {
		fields["description"] = description
	}

	resp, err := s.client.Upload(ctx, studentPath(id)+"/documents", fileName, file, fields)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := resp.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// Documents lists a student's attached documents.
func (s *StudentsService) Documents(ctx context.Context, id string) ([]Document, error) {
	resp, err := s.client.Get(ctx, studentPath(id)+"/documents", nil)
	if err != nil {
		return nil, err
	}

	var docs []Document
	if err := resp.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes one attached document.
func (s *StudentsService) DeleteDocument(ctx context.Context, studentID, documentID string) error {
	_, err := s.client.Delete(ctx, studentPath(studentID)+"/documents/"+url.PathEscape(documentID), nil)
	return err
}

// ExportCSV streams the student roster export into w.
func (s *StudentsService) ExportCSV(ctx context.Context, w io.Writer) error {
	return s.client.Download(ctx, "/students/export/csv", w)
}

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// createdResource is something a step created that cleanup must remove.
type createdResource struct {
	Kind string // students, teachers, classes, grades, attendance
	ID   string
}

type actionFunc func(ctx context.Context, client *sissdk.Client, with map[string]any) (result any, created *createdResource, err error)

var actions = map[string]actionFunc{
	"students.create":   studentsCreate,
	"students.get":      studentsGet,
	"students.update":   studentsUpdate,
	"students.patch":    studentsPatch,
	"students.delete":   studentsDelete,
	"students.search":   studentsSearch,
	"teachers.create":   teachersCreate,
	"classes.create":    classesCreate,
	"classes.enroll":    classesEnroll,
	"classes.roster":    classesRoster,
	"grades.create":     gradesCreate,
	"attendance.create": attendanceCreate,
	"wait":              waitAction,
}

// decodeWith maps the loosely-typed step parameters onto a typed model via
// a JSON round trip, the same camelCase names the API itself uses.
func decodeWith(with map[string]any, target any) error {
	raw, err := json.Marshal(with)
	if err != nil {
		return fmt.Errorf("encode step parameters: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode step parameters: %w", err)
	}
	return nil
}

func stringParam(with map[string]any, key string) (string, error) {
	v, ok := with[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("step parameter %q is required", key)
	}
	return v, nil
}

func studentsCreate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	var in sissdk.Student
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	student, err := client.Students().Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return student, &createdResource{Kind: "students", ID: student.ID}, nil
}

func studentsGet(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	id, err := stringParam(with, "id")
	if err != nil {
		return nil, nil, err
	}
	student, err := client.Students().Get(ctx, id)
	return student, nil, err
}

func studentsUpdate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	id, err := stringParam(with, "id")
	if err != nil {
		return nil, nil, err
	}
	var in sissdk.Student
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	student, err := client.Students().Update(ctx, id, in)
	return student, nil, err
}

func studentsPatch(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	id, err := stringParam(with, "id")
	if err != nil {
		return nil, nil, err
	}
	fields := make(map[string]any, len(with))
	for k, v := range with {
		if k != "id" {
			fields[k] = v
		}
	}
	student, err := client.Students().Patch(ctx, id, fields)
	return student, nil, err
}

func studentsDelete(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	id, err := stringParam(with, "id")
	if err != nil {
		return nil, nil, err
	}
	return nil, nil, client.Students().Delete(ctx, id)
}

func studentsSearch(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	term, err := stringParam(with, "term")
	if err != nil {
		return nil, nil, err
	}
	students, _, err := client.Students().Search(ctx, term, sissdk.ListOptions{})
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{"count": len(students), "students": students}, nil, nil
}

func teachersCreate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	var in sissdk.Teacher
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	teacher, err := client.Teachers().Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return teacher, &createdResource{Kind: "teachers", ID: teacher.ID}, nil
}

func classesCreate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	var in sissdk.Class
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	class, err := client.Classes().Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return class, &createdResource{Kind: "classes", ID: class.ID}, nil
}

func classesEnroll(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	classID, err := stringParam(with, "classId")
	if err != nil {
		return nil, nil, err
	}
	studentID, err := stringParam(with, "studentId")
	if err != nil {
		return nil, nil, err
	}
	return nil, nil, client.Classes().Enroll(ctx, classID, studentID)
}

func classesRoster(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	classID, err := stringParam(with, "classId")
	if err != nil {
		return nil, nil, err
	}
	roster, err := client.Classes().Roster(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{"count": len(roster), "students": roster}, nil, nil
}

func gradesCreate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	var in sissdk.Grade
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	grade, err := client.Grades().Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return grade, &createdResource{Kind: "grades", ID: grade.ID}, nil
}

func attendanceCreate(ctx context.Context, client *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	var in sissdk.Attendance
	if err := decodeWith(with, &in); err != nil {
		return nil, nil, err
	}
	record, err := client.Attendance().Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return record, &createdResource{Kind: "attendance", ID: record.ID}, nil
}

func waitAction(ctx context.Context, _ *sissdk.Client, with map[string]any) (any, *createdResource, error) {
	raw, err := stringParam(with, "duration")
	if err != nil {
		return nil, nil, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid wait duration %q: %w", raw, err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-timer.C:
		return nil, nil, nil
	}
}

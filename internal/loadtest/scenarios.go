package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// Scenario is one repeatable unit of simulated user behavior. Iterate is
// called in a loop until the run deadline; each call should represent one
// coherent user interaction, with think time between steps.
type Scenario struct {
	Name        string
	Description string
	Iterate     func(ctx context.Context, u *VirtualUser) error
}

var scenarios = map[string]Scenario{
	"dashboard_load": {
		Name:        "dashboard_load",
		Description: "Read-heavy: the landing dashboard a staff member sees after login.",
		Iterate:     iterateDashboard,
	},
	"student_search": {
		Name:        "student_search",
		Description: "Repeated roster searches with paging, the front-office pattern.",
		Iterate:     iterateSearch,
	},
	"student_crud": {
		Name:        "student_crud",
		Description: "Full student lifecycle: create, read, update, delete.",
		Iterate:     iterateCRUD,
	},
	"bulk_operations": {
		Name:        "bulk_operations",
		Description: "Batch imports and batch removals, the term-start pattern.",
		Iterate:     iterateBulk,
	},
	"mixed_workflow": {
		Name:        "mixed_workflow",
		Description: "Weighted mix of the other scenarios, closest to production traffic.",
		Iterate:     iterateMixed,
	},
}

// Scenarios lists the registered scenarios in name order.
func Scenarios() []Scenario {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		out = append(out, scenarios[name])
	}
	return out
}

func iterateDashboard(ctx context.Context, u *VirtualUser) error {
	_ = u.Do(ctx, "students.statistics", func(ctx context.Context) error {
		_, err := u.Client.Students().Statistics(ctx)
		return err
	})
	_ = u.Do(ctx, "students.list", func(ctx context.Context) error {
		_, _, err := u.Client.Students().List(ctx, sissdk.ListOptions{Limit: 20})
		return err
	})
	_ = u.Do(ctx, "classes.list", func(ctx context.Context) error {
		_, _, err := u.Client.Classes().List(ctx, sissdk.ListOptions{Limit: 20})
		return err
	})
	_ = u.Do(ctx, "attendance.list", func(ctx context.Context) error {
		_, _, err := u.Client.Attendance().List(ctx, sissdk.ListOptions{Limit: 20})
		return err
	})
	return u.Think(ctx)
}

func iterateSearch(ctx context.Context, u *VirtualUser) error {
	term := pick(u.rng, searchTerms)
	page := 1 + u.rng.Intn(3)

	_ = u.Do(ctx, "students.search", func(ctx context.Context) error {
		_, _, err := u.Client.Students().Search(ctx, term, sissdk.ListOptions{
			Page:  page,
			Limit: 25,
		})
		return err
	})
	return u.Think(ctx)
}

func iterateCRUD(ctx context.Context, u *VirtualUser) error {
	var created *sissdk.Student

	err := u.Do(ctx, "students.create", func(ctx context.Context) error {
		var err error
		created, err = u.Client.Students().Create(ctx, randomStudent(u.rng))
		return err
	})
	if err != nil || created == nil || created.ID == "" {
		return u.Think(ctx)
	}

	_ = u.Do(ctx, "students.get", func(ctx context.Context) error {
		_, err := u.Client.Students().Get(ctx, created.ID)
		return err
	})
	_ = u.Do(ctx, "students.patch", func(ctx context.Context) error {
		_, err := u.Client.Students().Patch(ctx, created.ID, map[string]any{
			"gradeLevel": fmt.Sprintf("%d", 9+u.rng.Intn(4)),
		})
		return err
	})
	_ = u.Do(ctx, "students.delete", func(ctx context.Context) error {
		return u.Client.Students().Delete(ctx, created.ID)
	})
	return u.Think(ctx)
}

func iterateBulk(ctx context.Context, u *VirtualUser) error {
	batch := make([]sissdk.Student, 10+u.rng.Intn(15))
	for i := range batch {
		batch[i] = randomStudent(u.rng)
	}

	var result *sissdk.BulkResult
	err := u.Do(ctx, "students.bulk_create", func(ctx context.Context) error {
		var err error
		result, err = u.Client.Students().BulkCreate(ctx, batch)
		return err
	})
	if err == nil && result != nil && result.Created > 0 {
		_ = u.Do(ctx, "students.list", func(ctx context.Context) error {
			_, _, err := u.Client.Students().List(ctx, sissdk.ListOptions{Limit: 50})
			return err
		})
	}
	return u.Think(ctx)
}

// iterateMixed approximates production traffic: mostly reads, some
// searches, occasional writes.
func iterateMixed(ctx context.Context, u *VirtualUser) error {
	switch roll := u.rng.Intn(100); {
	case roll < 50:
		return iterateDashboard(ctx, u)
	case roll < 80:
		return iterateSearch(ctx, u)
	case roll < 95:
		return iterateCRUD(ctx, u)
	default:
		return iterateBulk(ctx, u)
	}
}

var (
	searchTerms = []string{"smith", "garcia", "chen", "nguyen", "patel", "jones", "kim", "lee"}
	firstNames  = []string{"Ava", "Liam", "Maya", "Noah", "Zoe", "Ethan", "Isla", "Lucas", "Ruby", "Mason"}
	lastNames   = []string{"Smith", "Garcia", "Chen", "Nguyen", "Patel", "Jones", "Kim", "Lee", "Brown", "Davis"}
)

func randomStudent(rng *rand.Rand) sissdk.Student {
	grade := 9 + rng.Intn(4)
	return sissdk.Student{
		StudentID:      fmt.Sprintf("LT-%06d", rng.Intn(1_000_000)),
		FirstName:      pick(rng, firstNames),
		LastName:       pick(rng, lastNames),
		DateOfBirth:    fmt.Sprintf("%d-%02d-%02d", 2026-grade-6, 1+rng.Intn(12), 1+rng.Intn(28)),
		GradeLevel:     fmt.Sprintf("%d", grade),
		EnrollmentDate: "2025-09-01",
		Status:         sissdk.StudentActive,
	}
}

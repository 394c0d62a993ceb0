package sissdk

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// ============================================================================
// Response Envelope
// ============================================================================

// envelope is the JSON wrapper every API endpoint responds with.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Response is the decoded result of one API call. Data holds the raw
// `data` member of the envelope; use Decode to unmarshal it into a model.
type Response struct {
	Status     int
	Success    bool
	Message    string
	Data       json.RawMessage
	Pagination *Pagination
}

// Decode unmarshals the response data into target.
func (r *Response) Decode(target any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, target)
}

// Pagination describes the list position returned alongside collection
// endpoints.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// ListOptions are the common query parameters collection endpoints accept.
// The zero value lists with server-side defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Sort   string
	Search string

	// Resource-specific filters; endpoints ignore the ones they don't know.
	GradeLevel      string
	Status          string
	AcademicProgram string
	Subject         string
	ClassID         string
	StudentID       string
	Date            string // ISO date, attendance listings
}

// Query renders the options as URL query parameters.
func (o ListOptions) Query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.GradeLevel != "" {
		q.Set("gradeLevel", o.GradeLevel)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.AcademicProgram != "" {
		q.Set("academicProgram", o.AcademicProgram)
	}
	if o.Subject != "" {
		q.Set("subject", o.Subject)
	}
	if o.ClassID != "" {
		q.Set("classId", o.ClassID)
	}
	if o.StudentID != "" {
		q.Set("studentId", o.StudentID)
	}
	if o.Date != "" {
		q.Set("date", o.Date)
	}
	return q
}

// ============================================================================
// Auth Types
// ============================================================================

// LoginData is the payload of a successful POST /auth/login or
// POST /auth/refresh response.
type LoginData struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	User         *User   `json:"user,omitempty"`
	Tenant       *Tenant `json:"tenant,omitempty"`
}

// User is the authenticated account behind a session.
type User struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"` // admin, principal, teacher, staff, student, parent
	Status    string `json:"status"`
}

// Tenant is a single school's isolated data partition.
type Tenant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	SchoolName  string `json:"schoolName"`
	SchoolType  string `json:"schoolType"`  // public, private, charter, ...
	SchoolLevel string `json:"schoolLevel"` // elementary, middle, high, k12
	CountryCode string `json:"countryCode"`
	Timezone    string `json:"timezone"`
}

// ============================================================================
// Domain Models
// ============================================================================

// Student statuses.
const (
	StudentActive      = "active"
	StudentGraduated   = "graduated"
	StudentTransferred = "transferred"
	StudentWithdrawn   = "withdrawn"
	StudentSuspended   = "suspended"
)

type Student struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenantId"`
	UserID         string `json:"userId,omitempty"`
	StudentID      string `json:"studentId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MiddleName     string `json:"middleName,omitempty"`
	PreferredName  string `json:"preferredName,omitempty"`
	DateOfBirth    string `json:"dateOfBirth"`
	Gender         string `json:"gender,omitempty"`
	GradeLevel     string `json:"gradeLevel"`
	EnrollmentDate string `json:"enrollmentDate"`
	GraduationDate string `json:"graduationDate,omitempty"`
	Status         string `json:"status"`

	AcademicProgram string  `json:"academicProgram,omitempty"`
	GPA             float64 `json:"gpa,omitempty"`
	CreditsEarned   int     `json:"creditsEarned,omitempty"`
	CreditsRequired int     `json:"creditsRequired,omitempty"`

	PrimaryEmail string `json:"primaryEmail,omitempty"`
	PrimaryPhone string `json:"primaryPhone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`

	EmergencyContactName  string `json:"emergencyContact1Name,omitempty"`
	EmergencyContactPhone string `json:"emergencyContact1Phone,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type Teacher struct {
	ID             string   `json:"id"`
	TenantID       string   `json:"tenantId"`
	UserID         string   `json:"userId"`
	EmployeeID     string   `json:"employeeId"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Title          string   `json:"title,omitempty"`
	Department     string   `json:"department,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	HireDate       string   `json:"hireDate"`
	Status         string   `json:"status"`
	PrimaryEmail   string   `json:"primaryEmail,omitempty"`
	OfficeLocation string   `json:"officeLocation,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// ClassSchedule is one weekly meeting slot; DayOfWeek 0 is Sunday.
type ClassSchedule struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"` // HH:MM
	EndTime   string `json:"endTime"`   // HH:MM
}

type Class struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	CourseID          string          `json:"courseId"`
	SectionNumber     string          `json:"sectionNumber"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Subject           string          `json:"subject"`
	GradeLevel        string          `json:"gradeLevel"`
	AcademicYear      string          `json:"academicYear"`
	Semester          string          `json:"semester"`
	TeacherID         string          `json:"teacherId"`
	RoomNumber        string          `json:"roomNumber,omitempty"`
	Schedule          []ClassSchedule `json:"schedule,omitempty"`
	MaxStudents       int             `json:"maxStudents"`
	CurrentEnrollment int             `json:"currentEnrollment"`
	Status            string          `json:"status"` // active, inactive, completed, cancelled
	Credits           int             `json:"credits"`
	CreatedAt         string          `json:"createdAt,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
}

// Grade types.
const (
	GradeAssignment    = "assignment"
	GradeQuiz          = "quiz"
	GradeExam          = "exam"
	GradeProject       = "project"
	GradeParticipation = "participation"
	GradeHomework      = "homework"
)

type Grade struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenantId"`
	StudentID      string  `json:"studentId"`
	ClassID        string  `json:"classId"`
	AssignmentName string  `json:"assignmentName,omitempty"`
	PointsEarned   float64 `json:"pointsEarned"`
	PointsPossible float64 `json:"pointsPossible"`
	Percentage     float64 `json:"percentage"`
	LetterGrade    string  `json:"letterGrade,omitempty"`
	GradeType      string  `json:"gradeType"`
	Comments       string  `json:"comments,omitempty"`
	IsExcused      bool    `json:"isExcused,omitempty"`
	IsLate         bool    `json:"isLate,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceTardy   = "tardy"
	AttendanceExcused = "excused"
	AttendanceLate    = "late"
)

type Attendance struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Period    string `json:"period,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Excused   bool   `json:"excused,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Document is an attachment uploaded against a student record.
type Document struct {
	ID           string `json:"id"`
	StudentID    string `json:"studentId"`
	DocumentType string `json:"documentType"`
	FileName     string `json:"fileName"`
	Description  string `json:"description,omitempty"`
	UploadedAt   string `json:"uploadedAt,omitempty"`
}

// BulkResult reports the outcome of a bulk create/update/delete call.
type BulkResult struct {
	Created int      `json:"created,omitempty"`
	Updated int      `json:"updated,omitempty"`
	Deleted int      `json:"deleted,omitempty"`
	Failed  int      `json:"failed,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

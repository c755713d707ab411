package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kitabu/studyhall/core"
)

type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TeacherID   string    `json:"teacher_id"`
	Subject     string    `json:"subject"`
	Level       string    `json:"level"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// ClassInfo is a Class enriched with listing counters.
type ClassInfo struct {
	Class
	StudentCount    int `json:"student_count"`
	AssignmentCount int `json:"assignment_count"`
}

type Enrollment struct {
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Level = core.CleanString(nc.Level)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

func (uc *UpdateClass) Validate(orig Class, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if subject := core.CleanString(uc.Subject); subject != "" {
		uc.Subject = subject
	} else {
		uc.Subject = orig.Subject
	}
	if level := core.CleanString(uc.Level); level != "" {
		uc.Level = level
	} else {
		uc.Level = orig.Level
	}
	if uc.Description == "" {
		uc.Description = orig.Description
	}
	return validate.Struct(uc)
}

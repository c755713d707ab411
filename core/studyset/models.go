package studyset

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kitabu/studyhall/core"
)

// Set types
const (
	TypeFlashcards = "Flashcards"
	TypeQuiz       = "Quiz"
	TypeProblemSet = "Problem set"
)

// Question types
const (
	QuestionFlashcard      = "flashcard"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
	QuestionProblem        = "problem"
)

// Ownership filters
const (
	OwnershipMine     = "Mine"
	OwnershipShared   = "Shared with me"
	OwnershipAssigned = "Assigned"
)

// Sort keys
const (
	SortRecentlyUsed    = "recently-used"
	SortRecentlyCreated = "recently-created"
	SortAlphabetical    = "a-z"
	SortRecommended     = "recommended"
)

type StudySet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Type        string    `json:"type"`
	Level       string    `json:"level"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	IsShared    bool      `json:"is_shared"`
	IsPublic    bool      `json:"is_public"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// StudySetInfo is a StudySet enriched with per-viewer listing data.
type StudySetInfo struct {
	StudySet
	ItemCount    int      `json:"item_count"`
	IsAssigned   bool     `json:"is_assigned"`
	IsDownloaded bool     `json:"is_downloaded"`
	Mastery      *float64 `json:"mastery"`
}

type QuestionOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type Question struct {
	ID            string           `json:"id"`
	SetID         string           `json:"set_id"`
	Type          string           `json:"type"`
	Content       string           `json:"content"`
	CorrectAnswer string           `json:"correct_answer"`
	Options       []QuestionOption `json:"options,omitempty"` // ordered; multiple_choice only
}

// Assignment links a StudySet to a class and/or specific students.
// An empty ClassID means the assignment is direct-only: it reaches no one
// except the students named by its student-assignment rows.
type Assignment struct {
	ID         string     `json:"id"`
	SetID      string     `json:"set_id"`
	ClassID    string     `json:"class_id,omitempty"`
	AssignedBy string     `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"` // UTC
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Progress holds a user's latest attempt result for one set.
// There is at most one Progress row per (user, set); attempts upsert it.
type Progress struct {
	UserID            string    `json:"user_id"`
	SetID             string    `json:"set_id"`
	MasteryPercentage float64   `json:"mastery_percentage"` // 0-100
	ItemsCompleted    int       `json:"items_completed"`
	TotalItems        int       `json:"total_items"`
	LastActivity      time.Time `json:"last_activity"` // UTC
}

// NewStudySet contains information needed to create a new StudySet.
type NewStudySet struct {
	Title       string         `json:"title" validate:"required"`
	Subject     string         `json:"subject"`
	Type        string         `json:"type" validate:"required,settype"`
	Level       string         `json:"level" validate:"omitempty,setlevel"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Assignment  *NewAssignment `json:"assignment"`
}

func (ns *NewStudySet) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Subject = core.CleanString(ns.Subject)
	ns.Level = core.CleanString(ns.Level)
	return validate.Struct(ns)
}

// UpdateStudySet defines what information may be provided to modify an existing StudySet.
type UpdateStudySet struct {
	Title       string   `json:"title"`
	Subject     string   `json:"subject"`
	Level       string   `json:"level" validate:"omitempty,setlevel"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (us *UpdateStudySet) Validate(orig StudySet, validate *validator.Validate) error {
	if title := core.CleanString(us.Title); title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if subject := core.CleanString(us.Subject); subject != "" {
		us.Subject = subject
	} else {
		us.Subject = orig.Subject
	}
	if level := core.CleanString(us.Level); level != "" {
		us.Level = level
	} else {
		us.Level = orig.Level
	}
	if us.Description == "" {
		us.Description = orig.Description
	}
	if us.Tags == nil {
		us.Tags = orig.Tags
	}
	return validate.Struct(us)
}

// NewQuestion contains information needed to add a question to a set.
type NewQuestion struct {
	Type          string   `json:"type" validate:"required,questiontype"`
	Content       string   `json:"content" validate:"required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Options       []string `json:"options"` // ordered; multiple_choice only
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Content = core.CleanString(nq.Content)
	nq.CorrectAnswer = core.CleanString(nq.CorrectAnswer)
	return validate.Struct(nq)
}

// NewAssignment assigns a set to a class, optionally narrowed to specific students.
type NewAssignment struct {
	ClassID     string     `json:"class_id" validate:"required"`
	AssignToAll bool       `json:"assign_to_all"`
	StudentIDs  []string   `json:"student_ids"`
	DueDate     *time.Time `json:"due_date"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// Attempt is a submitted answer sheet: question id -> raw answer.
// Multiple-choice answers hold the selected option index.
type Attempt struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (a *Attempt) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}

// AttemptResult is what grading an Attempt yields.
type AttemptResult struct {
	MasteryPercentage float64 `json:"mastery_percentage"`
	CorrectAnswers    int     `json:"correct_answers"`
	TotalQuestions    int     `json:"total_questions"`
}

type QueryFilter struct {
	Search    string `query:"search"`
	Subject   string `query:"subject"`
	Type      string `query:"type"`
	Ownership string `query:"ownership"`
	Sort      string `query:"sort"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Subject = core.CleanString(qf.Subject)
	if qf.Sort == "" {
		qf.Sort = SortRecentlyUsed
	}
}

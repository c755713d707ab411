package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitabu/studyhall/core/classroom"
)

type classRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	TeacherID   string      `db:"teacher_id"`
	Subject     null.String `db:"subject"`
	Level       null.String `db:"level"`
	Description null.String `db:"description"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r classRow) toClass() classroom.Class {
	return classroom.Class{
		ID:          r.ID,
		Name:        r.Name,
		TeacherID:   r.TeacherID,
		Subject:     r.Subject.String,
		Level:       r.Level.String,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type classInfoRow struct {
	classRow
	StudentCount    int `db:"student_count"`
	AssignmentCount int `db:"assignment_count"`
}

func (r classInfoRow) toClassInfo() classroom.ClassInfo {
	return classroom.ClassInfo{
		Class:           r.toClass(),
		StudentCount:    r.StudentCount,
		AssignmentCount: r.AssignmentCount,
	}
}

type classRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func trapNoClassErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return classroom.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *classRepository) CreateClass(cls classroom.Class) (classroom.Class, error) {
	cls.ID = uuid.New().String()
	const query = `
		INSERT INTO class (id, name, teacher_id, subject, level, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.Exec(query,
		cls.ID, cls.Name, cls.TeacherID, cls.Subject, cls.Level, cls.Description,
		cls.CreatedAt.UTC(), cls.UpdatedAt.UTC(),
	)
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *classRepository) GetClassByID(id string) (classroom.Class, error) {
	var row classRow
	if err := repo.db.Get(&row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return classroom.Class{}, trapNoClassErr(err, "getting class")
	}
	return row.toClass(), nil
}

const classInfoColumns = `
	c.*,
	(SELECT COUNT(*) FROM class_enrollment e WHERE e.class_id = c.id) AS student_count,
	(SELECT COUNT(*) FROM study_set_assignment a WHERE a.class_id = c.id) AS assignment_count`

func (repo *classRepository) QueryClassesByTeacher(teacherID string) ([]classroom.ClassInfo, error) {
	var rows []classInfoRow
	query := `SELECT ` + classInfoColumns + ` FROM class c WHERE c.teacher_id = $1 ORDER BY c.created_at DESC`
	if err := repo.db.Select(&rows, query, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher classes")
	}
	return rowsToClassInfos(rows), nil
}

func (repo *classRepository) QueryClassesByStudent(studentID string) ([]classroom.ClassInfo, error) {
	var rows []classInfoRow
	query := `SELECT ` + classInfoColumns + `
		FROM class c
		JOIN class_enrollment e ON e.class_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.created_at DESC`
	if err := repo.db.Select(&rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student classes")
	}
	return rowsToClassInfos(rows), nil
}

func rowsToClassInfos(rows []classInfoRow) []classroom.ClassInfo {
	infos := make([]classroom.ClassInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, r.toClassInfo())
	}
	return infos
}

func (repo *classRepository) UpdateClass(cls classroom.Class) (classroom.Class, error) {
	const query = `
		UPDATE class SET name = $2, subject = $3, level = $4, description = $5, updated_at = $6
		WHERE id = $1`
	res, err := repo.db.Exec(query,
		cls.ID, cls.Name, cls.Subject, cls.Level, cls.Description, cls.UpdatedAt.UTC())
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.Class{}, classroom.ErrNotFound
	}
	return cls, nil
}

func (repo *classRepository) DeleteClass(id string) error {
	_, err := repo.db.Exec(`DELETE FROM class WHERE id = $1`, id)
	return errors.Wrap(err, "deleting class")
}

func (repo *classRepository) AddEnrollment(classID, studentID string) error {
	res, err := repo.db.Exec(
		`INSERT INTO class_enrollment (class_id, student_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		classID, studentID, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "adding enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrAlreadyEnrolled
	}
	return nil
}

func (repo *classRepository) RemoveEnrollment(classID, studentID string) error {
	res, err := repo.db.Exec(
		`DELETE FROM class_enrollment WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "removing enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrNotEnrolled
	}
	return nil
}

func (repo *classRepository) QueryEnrolledClassIDs(studentID string) ([]string, error) {
	var ids []string
	err := repo.db.Select(&ids, `SELECT class_id FROM class_enrollment WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled classes")
	}
	return ids, nil
}

func (repo *classRepository) QueryClassStudentIDs(classID string) ([]string, error) {
	var ids []string
	err := repo.db.Select(&ids, `SELECT student_id FROM class_enrollment WHERE class_id = $1`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return ids, nil
}

package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kitabu/studyhall/core/studyset"
)

type studySetRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Subject     null.String    `db:"subject"`
	Type        string         `db:"type"`
	Level       null.String    `db:"level"`
	Description null.String    `db:"description"`
	CreatorID   string         `db:"creator_id"`
	IsShared    bool           `db:"is_shared"`
	IsPublic    bool           `db:"is_public"`
	Tags        pq.StringArray `db:"tags"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

func (r studySetRow) toSet() studyset.StudySet {
	return studyset.StudySet{
		ID:          r.ID,
		Title:       r.Title,
		Subject:     r.Subject.String,
		Type:        r.Type,
		Level:       r.Level.String,
		Description: r.Description.String,
		CreatorID:   r.CreatorID,
		IsShared:    r.IsShared,
		IsPublic:    r.IsPublic,
		Tags:        r.Tags,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type questionRow struct {
	ID            string `db:"id"`
	SetID         string `db:"set_id"`
	Type          string `db:"type"`
	Content       string `db:"content"`
	CorrectAnswer string `db:"correct_answer"`
}

type optionRow struct {
	ID          string `db:"id"`
	QuestionID  string `db:"question_id"`
	OptionText  string `db:"option_text"`
	OptionOrder int    `db:"option_order"`
}

type assignmentRow struct {
	ID         string      `db:"id"`
	SetID      string      `db:"set_id"`
	ClassID    null.String `db:"class_id"`
	AssignedBy string      `db:"assigned_by"`
	AssignedAt null.Time   `db:"assigned_at"`
	DueDate    null.Time   `db:"due_date"`
}

func (r assignmentRow) toAssignment() studyset.Assignment {
	return studyset.Assignment{
		ID:         r.ID,
		SetID:      r.SetID,
		ClassID:    r.ClassID.String,
		AssignedBy: r.AssignedBy,
		AssignedAt: r.AssignedAt.Time,
		DueDate:    r.DueDate.Ptr(),
	}
}

type progressRow struct {
	UserID            string    `db:"user_id"`
	SetID             string    `db:"set_id"`
	MasteryPercentage float64   `db:"mastery_percentage"`
	ItemsCompleted    int       `db:"items_completed"`
	TotalItems        int       `db:"total_items"`
	LastActivity      null.Time `db:"last_activity"`
}

func (r progressRow) toProgress() studyset.Progress {
	return studyset.Progress{
		UserID:            r.UserID,
		SetID:             r.SetID,
		MasteryPercentage: r.MasteryPercentage,
		ItemsCompleted:    r.ItemsCompleted,
		TotalItems:        r.TotalItems,
		LastActivity:      r.LastActivity.Time,
	}
}

type studySetRepository struct {
	db *sqlx.DB
}

var _ studyset.Repository = (*studySetRepository)(nil) // interface compliance check

func NewStudySetRepository(db *sqlx.DB) *studySetRepository {
	return &studySetRepository{db: db}
}

func trapNoSetErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return studyset.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *studySetRepository) CreateStudySet(set studyset.StudySet) (studyset.StudySet, error) {
	set.ID = uuid.New().String()
	const query = `
		INSERT INTO study_set (id, title, subject, type, level, description, creator_id, is_shared, is_public, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.db.Exec(query,
		set.ID, set.Title, set.Subject, set.Type, set.Level, set.Description,
		set.CreatorID, set.IsShared, set.IsPublic, pq.StringArray(set.Tags),
		set.CreatedAt.UTC(), set.UpdatedAt.UTC(),
	)
	if err != nil {
		return studyset.StudySet{}, errors.Wrap(err, "inserting study set")
	}
	return set, nil
}

func (repo *studySetRepository) GetStudySetByID(id string) (studyset.StudySet, error) {
	var row studySetRow
	if err := repo.db.Get(&row, `SELECT * FROM study_set WHERE id = $1`, id); err != nil {
		return studyset.StudySet{}, trapNoSetErr(err, "getting study set")
	}
	return row.toSet(), nil
}

// QueryVisibleStudySets translates the visibility filter to SQL. The
// clauses mirror VisibilityFilter.Match exactly.
func (repo *studySetRepository) QueryVisibleStudySets(vis studyset.VisibilityFilter) ([]studyset.StudySet, error) {
	if vis.IsEmpty() {
		return []studyset.StudySet{}, nil
	}

	var (
		or   []string
		args []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if vis.OwnerID != "" {
		or = append(or, "creator_id = "+arg(vis.OwnerID))
	}
	if vis.IncludeShared {
		or = append(or, "is_shared")
	}
	if vis.AssigneeID != "" {
		or = append(or, fmt.Sprintf(`id IN (
			SELECT a.set_id FROM study_set_assignment a
			JOIN assignment_student s ON s.assignment_id = a.id
			WHERE s.student_id = %s)`, arg(vis.AssigneeID)))
	}
	if len(vis.ClassIDs) > 0 {
		or = append(or, fmt.Sprintf(
			"id IN (SELECT set_id FROM study_set_assignment WHERE class_id = ANY(%s))",
			arg(pq.Array(vis.ClassIDs))))
	}

	query := "SELECT * FROM study_set WHERE (" + strings.Join(or, " OR ") + ")"
	if vis.ExcludeOwnerID != "" {
		query += " AND creator_id <> " + arg(vis.ExcludeOwnerID)
	}

	var rows []studySetRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying visible study sets")
	}
	sets := make([]studyset.StudySet, 0, len(rows))
	for _, r := range rows {
		sets = append(sets, r.toSet())
	}
	return sets, nil
}

func (repo *studySetRepository) UpdateStudySet(set studyset.StudySet) (studyset.StudySet, error) {
	const query = `
		UPDATE study_set
		SET title = $2, subject = $3, level = $4, description = $5, is_shared = $6, is_public = $7, tags = $8, updated_at = $9
		WHERE id = $1`
	res, err := repo.db.Exec(query,
		set.ID, set.Title, set.Subject, set.Level, set.Description,
		set.IsShared, set.IsPublic, pq.StringArray(set.Tags), set.UpdatedAt.UTC(),
	)
	if err != nil {
		return studyset.StudySet{}, errors.Wrap(err, "updating study set")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return studyset.StudySet{}, studyset.ErrNotFound
	}
	return set, nil
}

func (repo *studySetRepository) DeleteStudySet(id string) error {
	_, err := repo.db.Exec(`DELETE FROM study_set WHERE id = $1`, id)
	return errors.Wrap(err, "deleting study set")
}

func (repo *studySetRepository) CreateQuestion(q studyset.Question) (studyset.Question, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return studyset.Question{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q.ID = uuid.New().String()
	_, err = tx.Exec(
		`INSERT INTO question (id, set_id, type, content, correct_answer) VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.SetID, q.Type, q.Content, q.CorrectAnswer,
	)
	if err != nil {
		return studyset.Question{}, errors.Wrap(err, "inserting question")
	}
	for i := range q.Options {
		q.Options[i].ID = uuid.New().String()
		_, err = tx.Exec(
			`INSERT INTO question_option (id, question_id, option_text, option_order) VALUES ($1, $2, $3, $4)`,
			q.Options[i].ID, q.ID, q.Options[i].Text, q.Options[i].Order,
		)
		if err != nil {
			return studyset.Question{}, errors.Wrap(err, "inserting question option")
		}
	}
	if err = tx.Commit(); err != nil {
		return studyset.Question{}, errors.Wrap(err, "committing question")
	}
	return q, nil
}

func (repo *studySetRepository) QueryQuestionsBySet(setID string) ([]studyset.Question, error) {
	var rows []questionRow
	if err := repo.db.Select(&rows, `SELECT * FROM question WHERE set_id = $1`, setID); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]studyset.Question, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, studyset.Question{
			ID:            r.ID,
			SetID:         r.SetID,
			Type:          r.Type,
			Content:       r.Content,
			CorrectAnswer: r.CorrectAnswer,
		})
		ids = append(ids, r.ID)
	}
	if err := repo.attachOptions(questions, ids); err != nil {
		return nil, err
	}
	return questions, nil
}

func (repo *studySetRepository) attachOptions(questions []studyset.Question, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM question_option WHERE question_id IN (?) ORDER BY option_order`, questionIDs)
	if err != nil {
		return errors.Wrap(err, "querying question options")
	}
	var rows []optionRow
	if err = repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "querying question options")
	}
	byQuestion := make(map[string][]studyset.QuestionOption)
	for _, r := range rows {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], studyset.QuestionOption{
			ID:    r.ID,
			Text:  r.OptionText,
			Order: r.OptionOrder,
		})
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
	}
	return nil
}

func (repo *studySetRepository) GetQuestionByID(id string) (studyset.Question, error) {
	var row questionRow
	if err := repo.db.Get(&row, `SELECT * FROM question WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return studyset.Question{}, studyset.ErrQuestionNotFound
		}
		return studyset.Question{}, errors.Wrap(err, "getting question")
	}
	q := studyset.Question{
		ID:            row.ID,
		SetID:         row.SetID,
		Type:          row.Type,
		Content:       row.Content,
		CorrectAnswer: row.CorrectAnswer,
	}
	questions := []studyset.Question{q}
	if err := repo.attachOptions(questions, []string{q.ID}); err != nil {
		return studyset.Question{}, err
	}
	return questions[0], nil
}

func (repo *studySetRepository) UpdateQuestion(q studyset.Question) (studyset.Question, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return studyset.Question{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`UPDATE question SET type = $2, content = $3, correct_answer = $4 WHERE id = $1`,
		q.ID, q.Type, q.Content, q.CorrectAnswer,
	)
	if err != nil {
		return studyset.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return studyset.Question{}, studyset.ErrQuestionNotFound
	}

	// options are replaced wholesale
	if _, err = tx.Exec(`DELETE FROM question_option WHERE question_id = $1`, q.ID); err != nil {
		return studyset.Question{}, errors.Wrap(err, "clearing question options")
	}
	for i := range q.Options {
		q.Options[i].ID = uuid.New().String()
		_, err = tx.Exec(
			`INSERT INTO question_option (id, question_id, option_text, option_order) VALUES ($1, $2, $3, $4)`,
			q.Options[i].ID, q.ID, q.Options[i].Text, q.Options[i].Order,
		)
		if err != nil {
			return studyset.Question{}, errors.Wrap(err, "inserting question option")
		}
	}
	if err = tx.Commit(); err != nil {
		return studyset.Question{}, errors.Wrap(err, "committing question")
	}
	return q, nil
}

func (repo *studySetRepository) DeleteQuestion(id string) error {
	_, err := repo.db.Exec(`DELETE FROM question WHERE id = $1`, id)
	return errors.Wrap(err, "deleting question")
}

func (repo *studySetRepository) CountQuestionsBySets(setIDs ...string) (map[string]int, error) {
	counts := make(map[string]int, len(setIDs))
	if len(setIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In(
		`SELECT set_id, COUNT(*) AS n FROM question WHERE set_id IN (?) GROUP BY set_id`, setIDs)
	if err != nil {
		return nil, errors.Wrap(err, "counting questions")
	}
	var rows []struct {
		SetID string `db:"set_id"`
		N     int    `db:"n"`
	}
	if err = repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "counting questions")
	}
	for _, r := range rows {
		counts[r.SetID] = r.N
	}
	return counts, nil
}

func (repo *studySetRepository) CreateAssignment(a studyset.Assignment, studentIDs []string) (studyset.Assignment, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return studyset.Assignment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	a.ID = uuid.New().String()
	_, err = tx.Exec(
		`INSERT INTO study_set_assignment (id, set_id, class_id, assigned_by, assigned_at, due_date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.SetID, null.NewString(a.ClassID, a.ClassID != ""), a.AssignedBy,
		a.AssignedAt.UTC(), null.TimeFromPtr(a.DueDate),
	)
	if err != nil {
		return studyset.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	for _, sid := range studentIDs {
		_, err = tx.Exec(
			`INSERT INTO assignment_student (assignment_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			a.ID, sid,
		)
		if err != nil {
			return studyset.Assignment{}, errors.Wrap(err, "inserting assignment student")
		}
	}
	if err = tx.Commit(); err != nil {
		return studyset.Assignment{}, errors.Wrap(err, "committing assignment")
	}
	return a, nil
}

func (repo *studySetRepository) QueryAssignmentGraph(setIDs ...string) ([]studyset.Assignment, map[string][]string, error) {
	assignees := make(map[string][]string)
	if len(setIDs) == 0 {
		return []studyset.Assignment{}, assignees, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM study_set_assignment WHERE set_id IN (?)`, setIDs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying assignments")
	}
	var rows []assignmentRow
	if err = repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return nil, nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]studyset.Assignment, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return assignments, assignees, nil
	}

	query, args, err = sqlx.In(`SELECT * FROM assignment_student WHERE assignment_id IN (?)`, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying assignment students")
	}
	var studentRows []struct {
		AssignmentID string `db:"assignment_id"`
		StudentID    string `db:"student_id"`
	}
	if err = repo.db.Select(&studentRows, repo.db.Rebind(query), args...); err != nil {
		return nil, nil, errors.Wrap(err, "querying assignment students")
	}
	for _, r := range studentRows {
		assignees[r.AssignmentID] = append(assignees[r.AssignmentID], r.StudentID)
	}
	return assignments, assignees, nil
}

// UpsertProgress keeps the one-row-per-(user, set) invariant atomically.
func (repo *studySetRepository) UpsertProgress(p studyset.Progress) (studyset.Progress, error) {
	const query = `
		INSERT INTO study_set_progress (user_id, set_id, mastery_percentage, items_completed, total_items, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, set_id) DO UPDATE
		SET mastery_percentage = EXCLUDED.mastery_percentage,
		    items_completed = EXCLUDED.items_completed,
		    total_items = EXCLUDED.total_items,
		    last_activity = EXCLUDED.last_activity`
	_, err := repo.db.Exec(query,
		p.UserID, p.SetID, p.MasteryPercentage, p.ItemsCompleted, p.TotalItems, p.LastActivity.UTC(),
	)
	if err != nil {
		return studyset.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return p, nil
}

func (repo *studySetRepository) QueryProgressByUser(userID string) ([]studyset.Progress, error) {
	var rows []progressRow
	err := repo.db.Select(&rows,
		`SELECT * FROM study_set_progress WHERE user_id = $1 ORDER BY last_activity DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	progress := make([]studyset.Progress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.toProgress())
	}
	return progress, nil
}

func (repo *studySetRepository) MarkSetOffline(userID, setID string) error {
	_, err := repo.db.Exec(
		`INSERT INTO offline_set (user_id, set_id, marked_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, setID, time.Now().UTC(),
	)
	return errors.Wrap(err, "marking set offline")
}

func (repo *studySetRepository) UnmarkSetOffline(userID, setID string) error {
	_, err := repo.db.Exec(`DELETE FROM offline_set WHERE user_id = $1 AND set_id = $2`, userID, setID)
	return errors.Wrap(err, "unmarking set offline")
}

func (repo *studySetRepository) QueryOfflineSetIDs(userID string) ([]string, error) {
	var ids []string
	err := repo.db.Select(&ids, `SELECT set_id FROM offline_set WHERE user_id = $1`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying offline sets")
	}
	return ids, nil
}

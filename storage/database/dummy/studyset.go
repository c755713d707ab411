package dummydb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kitabu/studyhall/core/studyset"
)

type studySetRepository struct {
	db *studySetTable
}

var _ studyset.Repository = (*studySetRepository)(nil) // interface compliance check

func NewStudySetRepository(db *DB) *studySetRepository {
	return &studySetRepository{db: db.studySet}
}

func progressKey(userID, setID string) string { return userID + "/" + setID }

func (repo *studySetRepository) CreateStudySet(set studyset.StudySet) (studyset.StudySet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	set.ID = uuid.New().String()
	repo.db.table[set.ID] = &set
	return set, nil
}

func (repo *studySetRepository) GetStudySetByID(id string) (studyset.StudySet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if set, ok := repo.db.table[id]; ok {
		return *set, nil
	}
	return studyset.StudySet{}, studyset.ErrNotFound
}

// accessContext snapshots the full assignment graph; callers hold the lock.
func (repo *studySetRepository) accessContext() studyset.AccessContext {
	ac := studyset.AccessContext{DirectAssignees: make(map[string][]string)}
	for _, a := range repo.db.assignments {
		ac.Assignments = append(ac.Assignments, *a)
		for sid := range repo.db.assignees[a.ID] {
			ac.DirectAssignees[a.ID] = append(ac.DirectAssignees[a.ID], sid)
		}
	}
	return ac
}

func (repo *studySetRepository) QueryVisibleStudySets(vis studyset.VisibilityFilter) ([]studyset.StudySet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ac := repo.accessContext()
	sets := make([]studyset.StudySet, 0)
	for _, set := range repo.db.table {
		if vis.Match(*set, ac) {
			sets = append(sets, *set)
		}
	}
	sort.SliceStable(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		return sets[i].ID < sets[j].ID
	})
	return sets, nil
}

func (repo *studySetRepository) UpdateStudySet(set studyset.StudySet) (studyset.StudySet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[set.ID]
	if !ok {
		return studyset.StudySet{}, studyset.ErrNotFound
	}
	orig.Title = set.Title
	orig.Subject = set.Subject
	orig.Level = set.Level
	orig.Description = set.Description
	orig.IsShared = set.IsShared
	orig.IsPublic = set.IsPublic
	orig.Tags = set.Tags
	orig.UpdatedAt = set.UpdatedAt
	return *orig, nil
}

func (repo *studySetRepository) DeleteStudySet(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	for qid, q := range repo.db.questions {
		if q.SetID == id {
			delete(repo.db.questions, qid)
		}
	}
	for aid, a := range repo.db.assignments {
		if a.SetID == id {
			delete(repo.db.assignments, aid)
			delete(repo.db.assignees, aid)
		}
	}
	return nil
}

func (repo *studySetRepository) CreateQuestion(q studyset.Question) (studyset.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = uuid.New().String()
	for i := range q.Options {
		q.Options[i].ID = uuid.New().String()
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *studySetRepository) QueryQuestionsBySet(setID string) ([]studyset.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]studyset.Question, 0)
	for _, q := range repo.db.questions {
		if q.SetID == setID {
			questions = append(questions, *q)
		}
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (repo *studySetRepository) GetQuestionByID(id string) (studyset.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return studyset.Question{}, studyset.ErrQuestionNotFound
}

func (repo *studySetRepository) UpdateQuestion(q studyset.Question) (studyset.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return studyset.Question{}, studyset.ErrQuestionNotFound
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.New().String()
		}
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *studySetRepository) DeleteQuestion(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.questions, id)
	return nil
}

func (repo *studySetRepository) CountQuestionsBySets(setIDs ...string) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(setIDs))
	for _, id := range setIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(setIDs))
	for _, q := range repo.db.questions {
		if wanted[q.SetID] {
			counts[q.SetID]++
		}
	}
	return counts, nil
}

func (repo *studySetRepository) CreateAssignment(a studyset.Assignment, studentIDs []string) (studyset.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	students := make(map[string]bool, len(studentIDs))
	for _, sid := range studentIDs {
		students[sid] = true
	}
	repo.db.assignees[a.ID] = students
	return a, nil
}

func (repo *studySetRepository) QueryAssignmentGraph(setIDs ...string) ([]studyset.Assignment, map[string][]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(setIDs))
	for _, id := range setIDs {
		wanted[id] = true
	}
	assignments := make([]studyset.Assignment, 0)
	assignees := make(map[string][]string)
	for _, a := range repo.db.assignments {
		if !wanted[a.SetID] {
			continue
		}
		assignments = append(assignments, *a)
		for sid := range repo.db.assignees[a.ID] {
			assignees[a.ID] = append(assignees[a.ID], sid)
		}
	}
	sort.SliceStable(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, assignees, nil
}

func (repo *studySetRepository) UpsertProgress(p studyset.Progress) (studyset.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.progress[progressKey(p.UserID, p.SetID)] = &p
	return p, nil
}

func (repo *studySetRepository) QueryProgressByUser(userID string) ([]studyset.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := make([]studyset.Progress, 0)
	for _, p := range repo.db.progress {
		if p.UserID == userID {
			progress = append(progress, *p)
		}
	}
	sort.SliceStable(progress, func(i, j int) bool {
		return progress[i].LastActivity.After(progress[j].LastActivity)
	})
	return progress, nil
}

func (repo *studySetRepository) MarkSetOffline(userID, setID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sets, ok := repo.db.offline[userID]
	if !ok {
		sets = make(map[string]bool)
		repo.db.offline[userID] = sets
	}
	sets[setID] = true
	return nil
}

func (repo *studySetRepository) UnmarkSetOffline(userID, setID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.offline[userID], setID)
	return nil
}

func (repo *studySetRepository) QueryOfflineSetIDs(userID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	for setID := range repo.db.offline[userID] {
		ids = append(ids, setID)
	}
	sort.Strings(ids)
	return ids, nil
}

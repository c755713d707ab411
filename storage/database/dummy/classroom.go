package dummydb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kitabu/studyhall/core/classroom"
)

type classRepository struct {
	db       *classTable
	studySet *studySetTable
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class, studySet: db.studySet}
}

func (repo *classRepository) CreateClass(cls classroom.Class) (classroom.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls.ID = uuid.New().String()
	repo.db.table[cls.ID] = &cls
	repo.db.enrollments[cls.ID] = make(map[string]bool)
	return cls, nil
}

func (repo *classRepository) GetClassByID(id string) (classroom.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return *cls, nil
	}
	return classroom.Class{}, classroom.ErrNotFound
}

func (repo *classRepository) classInfo(cls classroom.Class) classroom.ClassInfo {
	info := classroom.ClassInfo{
		Class:        cls,
		StudentCount: len(repo.db.enrollments[cls.ID]),
	}
	repo.studySet.RLock()
	for _, a := range repo.studySet.assignments {
		if a.ClassID == cls.ID {
			info.AssignmentCount++
		}
	}
	repo.studySet.RUnlock()
	return info
}

func (repo *classRepository) QueryClassesByTeacher(teacherID string) ([]classroom.ClassInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	infos := make([]classroom.ClassInfo, 0)
	for _, cls := range repo.db.table {
		if cls.TeacherID == teacherID {
			infos = append(infos, repo.classInfo(*cls))
		}
	}
	sortClassInfos(infos)
	return infos, nil
}

func (repo *classRepository) QueryClassesByStudent(studentID string) ([]classroom.ClassInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	infos := make([]classroom.ClassInfo, 0)
	for classID, students := range repo.db.enrollments {
		if students[studentID] {
			if cls, ok := repo.db.table[classID]; ok {
				infos = append(infos, repo.classInfo(*cls))
			}
		}
	}
	sortClassInfos(infos)
	return infos, nil
}

// sortClassInfos orders newest first, matching the SQL repository.
func sortClassInfos(infos []classroom.ClassInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
}

func (repo *classRepository) UpdateClass(cls classroom.Class) (classroom.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[cls.ID]
	if !ok {
		return classroom.Class{}, classroom.ErrNotFound
	}
	orig.Name = cls.Name
	orig.Subject = cls.Subject
	orig.Level = cls.Level
	orig.Description = cls.Description
	orig.UpdatedAt = cls.UpdatedAt
	return *orig, nil
}

func (repo *classRepository) DeleteClass(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	delete(repo.db.enrollments, id)
	return nil
}

func (repo *classRepository) AddEnrollment(classID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	students, ok := repo.db.enrollments[classID]
	if !ok {
		students = make(map[string]bool)
		repo.db.enrollments[classID] = students
	}
	if students[studentID] {
		return classroom.ErrAlreadyEnrolled
	}
	students[studentID] = true
	return nil
}

func (repo *classRepository) RemoveEnrollment(classID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	students := repo.db.enrollments[classID]
	if !students[studentID] {
		return classroom.ErrNotEnrolled
	}
	delete(students, studentID)
	return nil
}

func (repo *classRepository) QueryEnrolledClassIDs(studentID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	for classID, students := range repo.db.enrollments {
		if students[studentID] {
			ids = append(ids, classID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *classRepository) QueryClassStudentIDs(classID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	for studentID := range repo.db.enrollments[classID] {
		ids = append(ids, studentID)
	}
	sort.Strings(ids)
	return ids, nil
}

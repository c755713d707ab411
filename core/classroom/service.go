package classroom

import (
	"errors"
	"time"

	"github.com/kitabu/studyhall/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrNotClassOwner   = errors.New("not the owner of this class")
	ErrAlreadyEnrolled = errors.New("student is already enrolled")
	ErrNotEnrolled     = errors.New("student is not enrolled in this class")
)

type (
	Repository interface {
		CreateClass(cls Class) (Class, error)
		GetClassByID(id string) (Class, error)
		QueryClassesByTeacher(teacherID string) ([]ClassInfo, error)
		QueryClassesByStudent(studentID string) ([]ClassInfo, error)
		UpdateClass(cls Class) (Class, error)
		DeleteClass(id string) error

		AddEnrollment(classID, studentID string) error
		RemoveEnrollment(classID, studentID string) error
		QueryEnrolledClassIDs(studentID string) ([]string, error)
		QueryClassStudentIDs(classID string) ([]string, error)
	}

	Service interface {
		Create(usr user.User, nc NewClass) (Class, error)
		GetByID(id string) (Class, error)
		// QueryForUser returns the teacher's own classes or the student's enrolled classes.
		QueryForUser(usr user.User) ([]ClassInfo, error)
		Update(usr user.User, id string, uc UpdateClass) (Class, error)
		Delete(usr user.User, id string) error

		AddStudents(usr user.User, classID string, studentIDs []string) (added []string, skipped []string, err error)
		RemoveStudent(usr user.User, classID, studentID string) error
		ListStudents(usr user.User, classID string) ([]user.User, error)
		EnrolledClassIDs(studentID string) ([]string, error)
	}

	// Directory resolves user ids to users; satisfied by the user repository.
	Directory interface {
		GetUserByID(id string) (user.User, error)
	}

	service struct {
		repo  Repository
		users Directory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users Directory) Service {
	return &service{repo: repo, users: users}
}

// getOwnClass loads a class and enforces teacher ownership.
// Returns ErrNotFound for foreign classes so their existence is not leaked.
func (svc *service) getOwnClass(usr user.User, classID string) (Class, error) {
	cls, err := svc.repo.GetClassByID(classID)
	if err != nil {
		return Class{}, err
	}
	if cls.TeacherID != usr.ID {
		return Class{}, ErrNotFound
	}
	return cls, nil
}

func (svc *service) Create(usr user.User, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:        nc.Name,
		TeacherID:   usr.ID,
		Subject:     nc.Subject,
		Level:       nc.Level,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateClass(cls)
}

func (svc *service) GetByID(id string) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *service) QueryForUser(usr user.User) ([]ClassInfo, error) {
	switch {
	case usr.IsTeacher():
		return svc.repo.QueryClassesByTeacher(usr.ID)
	case usr.IsStudent():
		return svc.repo.QueryClassesByStudent(usr.ID)
	}
	return []ClassInfo{}, nil
}

func (svc *service) Update(usr user.User, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.getOwnClass(usr, id)
	if err != nil {
		return Class{}, err
	}
	cls.Name = uc.Name
	cls.Subject = uc.Subject
	cls.Level = uc.Level
	cls.Description = uc.Description
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(cls)
}

func (svc *service) Delete(usr user.User, id string) error {
	if _, err := svc.getOwnClass(usr, id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(id)
}

func (svc *service) AddStudents(usr user.User, classID string, studentIDs []string) ([]string, []string, error) {
	if _, err := svc.getOwnClass(usr, classID); err != nil {
		return nil, nil, err
	}

	added := make([]string, 0, len(studentIDs))
	skipped := make([]string, 0)
	for _, sid := range studentIDs {
		student, err := svc.users.GetUserByID(sid)
		if err != nil || !student.IsStudent() {
			skipped = append(skipped, sid)
			continue
		}
		if err = svc.repo.AddEnrollment(classID, sid); err != nil {
			if err == ErrAlreadyEnrolled {
				skipped = append(skipped, sid)
				continue
			}
			return added, skipped, err
		}
		added = append(added, sid)
	}
	return added, skipped, nil
}

func (svc *service) RemoveStudent(usr user.User, classID, studentID string) error {
	if _, err := svc.getOwnClass(usr, classID); err != nil {
		return err
	}
	return svc.repo.RemoveEnrollment(classID, studentID)
}

func (svc *service) ListStudents(usr user.User, classID string) ([]user.User, error) {
	if _, err := svc.getOwnClass(usr, classID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.QueryClassStudentIDs(classID)
	if err != nil {
		return nil, err
	}
	students := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if student, err := svc.users.GetUserByID(id); err == nil {
			students = append(students, student)
		}
	}
	return students, nil
}

func (svc *service) EnrolledClassIDs(studentID string) ([]string, error) {
	return svc.repo.QueryEnrolledClassIDs(studentID)
}

package classroom

import (
	"strconv"
	"testing"
	"time"

	"github.com/kitabu/studyhall/core/user"
)

type fakeRepo struct {
	seq         int
	classes     map[string]Class
	enrollments map[string]map[string]bool // classID -> studentIDs
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		classes:     make(map[string]Class),
		enrollments: make(map[string]map[string]bool),
	}
}

func (r *fakeRepo) CreateClass(cls Class) (Class, error) {
	r.seq++
	cls.ID = "class-" + strconv.Itoa(r.seq)
	r.classes[cls.ID] = cls
	return cls, nil
}

func (r *fakeRepo) GetClassByID(id string) (Class, error) {
	cls, ok := r.classes[id]
	if !ok {
		return Class{}, ErrNotFound
	}
	return cls, nil
}

func (r *fakeRepo) QueryClassesByTeacher(teacherID string) ([]ClassInfo, error) {
	infos := make([]ClassInfo, 0)
	for _, cls := range r.classes {
		if cls.TeacherID == teacherID {
			infos = append(infos, ClassInfo{Class: cls, StudentCount: len(r.enrollments[cls.ID])})
		}
	}
	return infos, nil
}

func (r *fakeRepo) QueryClassesByStudent(studentID string) ([]ClassInfo, error) {
	infos := make([]ClassInfo, 0)
	for id, students := range r.enrollments {
		if students[studentID] {
			infos = append(infos, ClassInfo{Class: r.classes[id], StudentCount: len(students)})
		}
	}
	return infos, nil
}

func (r *fakeRepo) UpdateClass(cls Class) (Class, error) {
	if _, ok := r.classes[cls.ID]; !ok {
		return Class{}, ErrNotFound
	}
	r.classes[cls.ID] = cls
	return cls, nil
}

func (r *fakeRepo) DeleteClass(id string) error {
	delete(r.classes, id)
	delete(r.enrollments, id)
	return nil
}

func (r *fakeRepo) AddEnrollment(classID, studentID string) error {
	students, ok := r.enrollments[classID]
	if !ok {
		students = make(map[string]bool)
		r.enrollments[classID] = students
	}
	if students[studentID] {
		return ErrAlreadyEnrolled
	}
	students[studentID] = true
	return nil
}

func (r *fakeRepo) RemoveEnrollment(classID, studentID string) error {
	if !r.enrollments[classID][studentID] {
		return ErrNotEnrolled
	}
	delete(r.enrollments[classID], studentID)
	return nil
}

func (r *fakeRepo) QueryEnrolledClassIDs(studentID string) ([]string, error) {
	ids := make([]string, 0)
	for id, students := range r.enrollments {
		if students[studentID] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeRepo) QueryClassStudentIDs(classID string) ([]string, error) {
	ids := make([]string, 0)
	for id := range r.enrollments[classID] {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeDirectory map[string]user.User

func (d fakeDirectory) GetUserByID(id string) (user.User, error) {
	usr, ok := d[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func newTestUser(id string, roles ...string) user.User {
	return user.User{ID: id, Roles: roles}
}

func TestService_AddStudents(t *testing.T) {
	teacher := newTestUser("t1", user.RoleTeacher)
	intruder := newTestUser("t2", user.RoleTeacher)
	student1 := newTestUser("s1", user.RoleStudent)
	student2 := newTestUser("s2", user.RoleStudent)

	repo := newFakeRepo()
	svc := NewService(repo, fakeDirectory{
		"t1": teacher, "t2": intruder, "s1": student1, "s2": student2,
	})

	cls, err := svc.Create(teacher, NewClass{Name: "Algebra 101"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	t.Run("foreign class reads as not found", func(t *testing.T) {
		if _, _, err := svc.AddStudents(intruder, cls.ID, []string{"s1"}); err != ErrNotFound {
			t.Errorf("AddStudents() error = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("non-students and unknown ids are skipped", func(t *testing.T) {
		added, skipped, err := svc.AddStudents(teacher, cls.ID, []string{"s1", "s2", "t2", "nope"})
		if err != nil {
			t.Fatalf("AddStudents() failed, %v", err)
		}
		if len(added) != 2 {
			t.Errorf("added = %v, want s1 and s2", added)
		}
		if len(skipped) != 2 {
			t.Errorf("skipped = %v, want t2 and nope", skipped)
		}
	})

	t.Run("re-adding is skipped, not an error", func(t *testing.T) {
		added, skipped, err := svc.AddStudents(teacher, cls.ID, []string{"s1"})
		if err != nil {
			t.Fatalf("AddStudents() failed, %v", err)
		}
		if len(added) != 0 || len(skipped) != 1 {
			t.Errorf("added = %v, skipped = %v; want 0 added, 1 skipped", added, skipped)
		}
	})
}

func TestService_QueryForUser(t *testing.T) {
	teacher := newTestUser("t1", user.RoleTeacher)
	student := newTestUser("s1", user.RoleStudent)
	admin := newTestUser("a1", user.RoleAdmin)

	repo := newFakeRepo()
	svc := NewService(repo, fakeDirectory{"t1": teacher, "s1": student})

	cls, err := svc.Create(teacher, NewClass{Name: "Algebra 101"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, _, err := svc.AddStudents(teacher, cls.ID, []string{"s1"}); err != nil {
		t.Fatalf("AddStudents() failed, %v", err)
	}

	tests := []struct {
		name string
		usr  user.User
		want int
	}{
		{name: "teacher sees own classes", usr: teacher, want: 1},
		{name: "student sees enrolled classes", usr: student, want: 1},
		{name: "other roles see nothing", usr: admin, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			infos, err := svc.QueryForUser(tt.usr)
			if err != nil {
				t.Fatalf("QueryForUser() failed, %v", err)
			}
			if len(infos) != tt.want {
				t.Errorf("classes = %d, want %d", len(infos), tt.want)
			}
		})
	}
}

func TestService_UpdateDelete(t *testing.T) {
	teacher := newTestUser("t1", user.RoleTeacher)
	intruder := newTestUser("t2", user.RoleTeacher)

	repo := newFakeRepo()
	svc := NewService(repo, fakeDirectory{"t1": teacher, "t2": intruder})

	cls, err := svc.Create(teacher, NewClass{Name: "Algebra 101", Subject: "Math"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	t.Run("foreign update reads as not found", func(t *testing.T) {
		if _, err := svc.Update(intruder, cls.ID, UpdateClass{Name: "Hijacked"}); err != ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("owner updates", func(t *testing.T) {
		before := cls.UpdatedAt
		time.Sleep(time.Millisecond)
		updated, err := svc.Update(teacher, cls.ID, UpdateClass{Name: "Algebra 102", Subject: "Math"})
		if err != nil {
			t.Fatalf("Update() failed, %v", err)
		}
		if updated.Name != "Algebra 102" {
			t.Errorf("Name = %s, want Algebra 102", updated.Name)
		}
		if !updated.UpdatedAt.After(before) {
			t.Error("UpdatedAt was not refreshed")
		}
	})

	t.Run("foreign delete reads as not found", func(t *testing.T) {
		if err := svc.Delete(intruder, cls.ID); err != ErrNotFound {
			t.Errorf("Delete() error = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		if err := svc.Delete(teacher, cls.ID); err != nil {
			t.Fatalf("Delete() failed, %v", err)
		}
		if _, err := svc.GetByID(cls.ID); err != ErrNotFound {
			t.Errorf("GetByID() error = %v, want %v", err, ErrNotFound)
		}
	})
}

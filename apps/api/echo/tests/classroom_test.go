package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kitabu/studyhall/core/classroom"
	"github.com/kitabu/studyhall/core/user"
)

func Test_classApi_query(t *testing.T) {
	app := setup(t)

	teacher1 := createUser(t, "Teacher One", "teach1", "t1@test.cd", []string{user.RoleTeacher}, true)
	teacher2 := createUser(t, "Teacher Two", "teach2", "t2@test.cd", []string{user.RoleTeacher}, true)
	student := createUser(t, "Student", "stud1x", "s1@test.cd", []string{user.RoleStudent}, true)

	class1 := createClass(t, teacher1, "Algebra 101")
	class2 := createClass(t, teacher1, "Geometry 201")
	createClass(t, teacher2, "History 101")
	if err := classRepo.AddEnrollment(class1.ID, student.ID); err != nil {
		t.Fatalf("AddEnrollment() failed, %v", err)
	}

	classIDs := func(t *testing.T, body []byte) map[string]bool {
		var infos []classroom.ClassInfo
		if err := json.Unmarshal(body, &infos); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		ids := make(map[string]bool, len(infos))
		for _, info := range infos {
			ids[info.ID] = true
		}
		return ids
	}

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/classes")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("teacher lists own classes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes", getToken(t, teacher1))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		ids := classIDs(t, rec.Body.Bytes())
		if len(ids) != 2 || !ids[class1.ID] || !ids[class2.ID] {
			t.Errorf("class ids = %v, want {%s, %s}", ids, class1.ID, class2.ID)
		}
	})

	t.Run("student lists enrolled classes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		ids := classIDs(t, rec.Body.Bytes())
		if len(ids) != 1 || !ids[class1.ID] {
			t.Errorf("class ids = %v, want {%s}", ids, class1.ID)
		}
	})
}

func Test_classApi_create(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, "Teacher", "teach1", "t1@test.cd", []string{user.RoleTeacher}, true)
	student := createUser(t, "Student", "stud1x", "s1@test.cd", []string{user.RoleStudent}, true)

	body := marchallObj(t, classroom.NewClass{Name: "Algebra 101", Subject: "Math"})

	t.Run("teacher role required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("teacher creates a class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var cls classroom.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		if cls.TeacherID != teacher.ID {
			t.Errorf("TeacherID = %s, want %s", cls.TeacherID, teacher.ID)
		}
	})
}

func Test_classApi_students(t *testing.T) {
	app := setup(t)

	teacher1 := createUser(t, "Teacher One", "teach1", "t1@test.cd", []string{user.RoleTeacher}, true)
	teacher2 := createUser(t, "Teacher Two", "teach2", "t2@test.cd", []string{user.RoleTeacher}, true)
	student1 := createUser(t, "Student One", "stud1x", "s1@test.cd", []string{user.RoleStudent}, true)
	student2 := createUser(t, "Student Two", "stud2x", "s2@test.cd", []string{user.RoleStudent}, true)

	class := createClass(t, teacher1, "Algebra 101")
	token := getToken(t, teacher1)

	t.Run("add students skips non-students and unknowns", func(t *testing.T) {
		body := marchallObj(t, map[string][]string{
			"studentIds": {student1.ID, student2.ID, teacher2.ID, "nope"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/students", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Added   []string `json:"added"`
			Skipped []string `json:"skipped"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		if len(resp.Added) != 2 || len(resp.Skipped) != 2 {
			t.Errorf("added = %v, skipped = %v; want 2 added and 2 skipped", resp.Added, resp.Skipped)
		}
	})

	t.Run("re-adding is skipped", func(t *testing.T) {
		body := marchallObj(t, map[string][]string{"studentIds": {student1.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+class.ID+"/students", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Added   []string `json:"added"`
			Skipped []string `json:"skipped"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		if len(resp.Added) != 0 || len(resp.Skipped) != 1 {
			t.Errorf("added = %v, skipped = %v; want 0 added and 1 skipped", resp.Added, resp.Skipped)
		}
	})

	t.Run("foreign class reads as not found", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID+"/students", getToken(t, teacher2))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "class not found"}),
		}, rec)
	})

	t.Run("list students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID+"/students", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var students []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		if len(students) != 2 {
			t.Errorf("students = %d, want 2", len(students))
		}
	})

	t.Run("remove student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+class.ID+"/students/"+student2.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		ids, err := classRepo.QueryClassStudentIDs(class.ID)
		if err != nil {
			t.Fatalf("QueryClassStudentIDs() failed, %v", err)
		}
		if len(ids) != 1 || ids[0] != student1.ID {
			t.Errorf("student ids = %v, want [%s]", ids, student1.ID)
		}
	})

	t.Run("removing a non-enrolled student fails", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+class.ID+"/students/"+student2.ID, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "student is not enrolled in this class"}),
		}, rec)
	})
}

func Test_classApi_update_delete(t *testing.T) {
	app := setup(t)

	teacher1 := createUser(t, "Teacher One", "teach1", "t1@test.cd", []string{user.RoleTeacher}, true)
	teacher2 := createUser(t, "Teacher Two", "teach2", "t2@test.cd", []string{user.RoleTeacher}, true)

	class := createClass(t, teacher1, "Algebra 101")

	t.Run("foreign class cannot be updated", func(t *testing.T) {
		body := marchallObj(t, classroom.UpdateClass{Name: "Hijacked"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+class.ID, getToken(t, teacher2), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "class not found"}),
		}, rec)
	})

	t.Run("owner updates class", func(t *testing.T) {
		body := marchallObj(t, classroom.UpdateClass{Name: "Algebra 102"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+class.ID, getToken(t, teacher1), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var cls classroom.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		if cls.Name != "Algebra 102" {
			t.Errorf("Name = %s, want Algebra 102", cls.Name)
		}
	})

	t.Run("owner deletes class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+class.ID, getToken(t, teacher1))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := classRepo.GetClassByID(class.ID); err != classroom.ErrNotFound {
			t.Errorf("GetClassByID() error = %v, want %v", err, classroom.ErrNotFound)
		}
	})
}

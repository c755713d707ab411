package studyset

import (
	"testing"

	"github.com/kitabu/studyhall/core/user"
)

func activeUser(id string, roles ...string) user.User {
	active := true
	return user.User{ID: id, IsActive: &active, Roles: roles}
}

func TestCanView(t *testing.T) {
	teacher := activeUser("t1", user.RoleTeacher)
	otherTeacher := activeUser("t2", user.RoleTeacher)
	student := activeUser("s1", user.RoleStudent)
	classmate := activeUser("s2", user.RoleStudent)
	admin := activeUser("a1", user.RoleAdmin)
	nobody := activeUser("n1")

	ownSet := StudySet{ID: "set-own", CreatorID: "t1"}
	sharedSet := StudySet{ID: "set-shared", CreatorID: "t2", IsShared: true}
	privateSet := StudySet{ID: "set-private", CreatorID: "t2"}
	studentSet := StudySet{ID: "set-student", CreatorID: "s1"}
	directSet := StudySet{ID: "set-direct", CreatorID: "t2", IsShared: true}
	classSet := StudySet{ID: "set-class", CreatorID: "t2", IsShared: true}

	ac := AccessContext{
		EnrolledClassIDs: []string{"class-1"},
		Assignments: []Assignment{
			{ID: "asg-1", SetID: "set-direct"},
			{ID: "asg-2", SetID: "set-class", ClassID: "class-1"},
		},
		DirectAssignees: map[string][]string{"asg-1": {"s1"}},
	}
	// classmate is not enrolled anywhere and has no direct rows
	emptyAC := AccessContext{
		Assignments:     ac.Assignments,
		DirectAssignees: ac.DirectAssignees,
	}

	tests := []struct {
		name string
		usr  user.User
		set  StudySet
		ac   AccessContext
		want bool
	}{
		{name: "teacher sees own set", usr: teacher, set: ownSet, ac: ac, want: true},
		{name: "teacher sees shared set", usr: teacher, set: sharedSet, ac: ac, want: true},
		{name: "teacher cannot see private foreign set", usr: teacher, set: privateSet, ac: ac, want: false},
		{name: "other teacher sees own private set", usr: otherTeacher, set: privateSet, ac: ac, want: true},
		{name: "student sees own set", usr: student, set: studentSet, ac: ac, want: true},
		{name: "student sees directly assigned set", usr: student, set: directSet, ac: ac, want: true},
		{name: "student sees class-assigned set", usr: student, set: classSet, ac: ac, want: true},
		{name: "student cannot see unassigned shared set", usr: student, set: sharedSet, ac: ac, want: false},
		{name: "classmate without enrollment sees nothing", usr: classmate, set: classSet, ac: emptyAC, want: false},
		{name: "classmate not directly assigned", usr: classmate, set: directSet, ac: emptyAC, want: false},
		{name: "admin fails closed", usr: admin, set: sharedSet, ac: ac, want: false},
		{name: "roleless user fails closed", usr: nobody, set: sharedSet, ac: ac, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.usr, tt.set, tt.ac); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanModify(t *testing.T) {
	teacher := activeUser("t1", user.RoleTeacher)
	student := activeUser("s1", user.RoleStudent)
	admin := activeUser("a1", user.RoleAdmin)

	tests := []struct {
		name string
		usr  user.User
		set  StudySet
		want bool
	}{
		{name: "teacher modifies own set", usr: teacher, set: StudySet{CreatorID: "t1"}, want: true},
		{name: "teacher cannot modify foreign shared set", usr: teacher, set: StudySet{CreatorID: "t2", IsShared: true}, want: false},
		{name: "student modifies own set", usr: student, set: StudySet{CreatorID: "s1"}, want: true},
		{name: "student cannot modify assigned set", usr: student, set: StudySet{CreatorID: "t1", IsShared: true}, want: false},
		{name: "admin cannot modify even own-id match", usr: admin, set: StudySet{CreatorID: "a1"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModify(tt.usr, tt.set); got != tt.want {
				t.Errorf("CanModify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Everything modifiable must also be visible, whatever the role or
// assignment graph.
func TestModifyImpliesView(t *testing.T) {
	users := []user.User{
		activeUser("u1", user.RoleTeacher),
		activeUser("u1", user.RoleStudent),
		activeUser("u1", user.RoleAdmin),
		activeUser("u1"),
	}
	sets := []StudySet{
		{ID: "s1", CreatorID: "u1"},
		{ID: "s2", CreatorID: "u1", IsShared: true},
		{ID: "s3", CreatorID: "other"},
		{ID: "s4", CreatorID: "other", IsShared: true},
	}
	for _, usr := range users {
		for _, set := range sets {
			if CanModify(usr, set) && !CanView(usr, set, AccessContext{}) {
				t.Errorf("user %v can modify set %s without viewing it", usr.Roles, set.ID)
			}
		}
	}
}

// The bulk-listing filter must agree with the single-set check: a set
// matches the list filter exactly when CanView allows it.
func TestListFilterMatchesCanView(t *testing.T) {
	users := []user.User{
		activeUser("t1", user.RoleTeacher),
		activeUser("s1", user.RoleStudent),
		activeUser("s2", user.RoleStudent),
		activeUser("a1", user.RoleAdmin),
	}
	sets := []StudySet{
		{ID: "set-1", CreatorID: "t1"},
		{ID: "set-2", CreatorID: "t1", IsShared: true},
		{ID: "set-3", CreatorID: "t2", IsShared: true},
		{ID: "set-4", CreatorID: "t2"},
		{ID: "set-5", CreatorID: "s1"},
		{ID: "set-6", CreatorID: "s2"},
	}
	ac := AccessContext{
		Assignments: []Assignment{
			{ID: "asg-1", SetID: "set-2", ClassID: "class-1"},
			{ID: "asg-2", SetID: "set-3"},
			{ID: "asg-3", SetID: "set-4", ClassID: "class-2"},
		},
		DirectAssignees: map[string][]string{"asg-2": {"s1"}},
	}
	enrolled := map[string][]string{"s1": {"class-1"}, "s2": {"class-2"}}

	for _, usr := range users {
		usrAC := ac
		usrAC.EnrolledClassIDs = enrolled[usr.ID]
		filter := BuildListFilter(usr, usrAC.EnrolledClassIDs)
		for _, set := range sets {
			canView := CanView(usr, set, usrAC)
			matches := filter.Match(set, usrAC)
			if canView != matches {
				t.Errorf("user %s set %s: CanView = %v but filter match = %v",
					usr.ID, set.ID, canView, matches)
			}
		}
	}
}

func TestVisibilityFilterExcludeOwner(t *testing.T) {
	f := VisibilityFilter{IncludeShared: true, ExcludeOwnerID: "t1"}
	own := StudySet{ID: "s1", CreatorID: "t1", IsShared: true}
	foreign := StudySet{ID: "s2", CreatorID: "t2", IsShared: true}

	if f.Match(own, AccessContext{}) {
		t.Error("filter matched the excluded owner's set")
	}
	if !f.Match(foreign, AccessContext{}) {
		t.Error("filter did not match a foreign shared set")
	}
}

func TestVisibilityFilterZeroValueMatchesNothing(t *testing.T) {
	var f VisibilityFilter
	if !f.IsEmpty() {
		t.Error("zero filter should be empty")
	}
	ac := AccessContext{
		Assignments:     []Assignment{{ID: "asg-1", SetID: "set-1", ClassID: "class-1"}},
		DirectAssignees: map[string][]string{"asg-1": {"s1"}},
	}
	sets := []StudySet{
		{ID: "set-1", CreatorID: "t1", IsShared: true},
		{ID: "set-2", CreatorID: "s1"},
	}
	for _, set := range sets {
		if f.Match(set, ac) {
			t.Errorf("zero filter matched set %s", set.ID)
		}
	}
}

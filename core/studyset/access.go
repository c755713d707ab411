package studyset

import (
	"github.com/kitabu/studyhall/core/user"
)

// AccessContext is a read-only snapshot of the assignment graph around one
// or more sets, gathered once per request. Decisions made on it are pure:
// no repository access happens past this point.
type AccessContext struct {
	// EnrolledClassIDs are the viewer's class memberships (students only).
	EnrolledClassIDs []string
	// Assignments holds every assignment row for the sets under evaluation.
	Assignments []Assignment
	// DirectAssignees maps assignment id -> student ids named by its
	// student-assignment rows.
	DirectAssignees map[string][]string
}

func (ac AccessContext) enrolledIn(classID string) bool {
	for _, id := range ac.EnrolledClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// assignedTo reports whether the set reaches the student through the
// assignment graph: either a direct student assignment, or an assignment to
// a class the student is enrolled in.
func (ac AccessContext) assignedTo(studentID, setID string) bool {
	for _, a := range ac.Assignments {
		if a.SetID != setID {
			continue
		}
		for _, sid := range ac.DirectAssignees[a.ID] {
			if sid == studentID {
				return true
			}
		}
		if a.ClassID != "" && ac.enrolledIn(a.ClassID) {
			return true
		}
	}
	return false
}

// CanView decides whether usr may see the given set.
//
// Teachers see their own sets and any set flagged shared. Students see
// their own sets and sets assigned to them, directly or via class
// enrollment. Everyone else (including missing/unknown roles) sees
// nothing: visibility fails closed.
func CanView(usr user.User, set StudySet, ac AccessContext) bool {
	switch {
	case usr.IsTeacher():
		return set.CreatorID == usr.ID || set.IsShared
	case usr.IsStudent():
		if set.CreatorID == usr.ID {
			return true
		}
		return ac.assignedTo(usr.ID, set.ID)
	}
	return false
}

// CanModify decides whether usr may change or delete the given set.
// Strict ownership: neither sharing nor assignment ever grants write
// access, and unknown roles fail closed so modify always implies view.
func CanModify(usr user.User, set StudySet) bool {
	if !(usr.IsTeacher() || usr.IsStudent()) {
		return false
	}
	return set.CreatorID == usr.ID
}

// VisibilityFilter is CanView expressed as a composable bulk-query
// predicate: the union of own sets, directly-assigned sets, class-assigned
// sets and (for teachers) shared sets. The zero value matches nothing.
type VisibilityFilter struct {
	// OwnerID matches sets created by this user.
	OwnerID string
	// AssigneeID matches sets with a direct student assignment for this user.
	AssigneeID string
	// ClassIDs matches sets assigned to any of these classes.
	ClassIDs []string
	// IncludeShared matches sets with the shared flag.
	IncludeShared bool
	// ExcludeOwnerID drops sets created by this user ("Shared with me").
	ExcludeOwnerID string
}

// BuildListFilter produces the visibility predicate for bulk listing.
// Enrolled class ids are precomputed once by the caller and reused for
// every set the predicate touches.
func BuildListFilter(usr user.User, enrolledClassIDs []string) VisibilityFilter {
	switch {
	case usr.IsTeacher():
		return VisibilityFilter{OwnerID: usr.ID, IncludeShared: true}
	case usr.IsStudent():
		return VisibilityFilter{
			OwnerID:    usr.ID,
			AssigneeID: usr.ID,
			ClassIDs:   enrolledClassIDs,
		}
	}
	return VisibilityFilter{}
}

// IsEmpty reports whether the filter can match nothing at all.
func (f VisibilityFilter) IsEmpty() bool {
	return f.OwnerID == "" && f.AssigneeID == "" && len(f.ClassIDs) == 0 && !f.IncludeShared
}

// Match evaluates the filter against one set in memory, using the same
// assignment graph snapshot as CanView. Repositories translating the
// filter to SQL must agree with Match; the in-memory repository uses it
// directly, which keeps single-check and bulk listing provably consistent.
func (f VisibilityFilter) Match(set StudySet, ac AccessContext) bool {
	if f.ExcludeOwnerID != "" && set.CreatorID == f.ExcludeOwnerID {
		return false
	}
	if f.OwnerID != "" && set.CreatorID == f.OwnerID {
		return true
	}
	if f.IncludeShared && set.IsShared {
		return true
	}
	for _, a := range ac.Assignments {
		if a.SetID != set.ID {
			continue
		}
		if f.AssigneeID != "" {
			for _, sid := range ac.DirectAssignees[a.ID] {
				if sid == f.AssigneeID {
					return true
				}
			}
		}
		if a.ClassID != "" {
			for _, cid := range f.ClassIDs {
				if cid == a.ClassID {
					return true
				}
			}
		}
	}
	return false
}

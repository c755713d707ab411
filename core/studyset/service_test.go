package studyset

import (
	"testing"
	"time"

	"github.com/kitabu/studyhall/core/user"
)

func infoIDs(infos []StudySetInfo) []string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

func idsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortInfos(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	newInfos := func() []StudySetInfo {
		return []StudySetInfo{
			{StudySet: StudySet{ID: "a", Title: "Zebra Facts", CreatedAt: at(1), UpdatedAt: at(1)}},
			{StudySet: StudySet{ID: "b", Title: "algebra", IsShared: true, CreatedAt: at(3), UpdatedAt: at(5)}},
			{StudySet: StudySet{ID: "c", Title: "Biology", IsShared: true, CreatedAt: at(2), UpdatedAt: at(2)}},
			{StudySet: StudySet{ID: "d", Title: "chemistry", CreatedAt: at(4), UpdatedAt: at(4)}},
		}
	}
	progress := map[string]Progress{
		"a": {SetID: "a", LastActivity: at(10)},
		"d": {SetID: "d", LastActivity: at(12)},
	}

	t.Run("recently used puts touched sets first", func(t *testing.T) {
		infos := newInfos()
		sortInfos(infos, SortRecentlyUsed, progress)
		want := []string{"d", "a", "b", "c"}
		if got := infoIDs(infos); !idsEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("recently used without progress falls back to updated_at", func(t *testing.T) {
		infos := newInfos()
		sortInfos(infos, SortRecentlyUsed, nil)
		want := []string{"b", "d", "c", "a"}
		if got := infoIDs(infos); !idsEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("recently created", func(t *testing.T) {
		infos := newInfos()
		sortInfos(infos, SortRecentlyCreated, nil)
		want := []string{"d", "b", "c", "a"}
		if got := infoIDs(infos); !idsEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("alphabetical ignores case", func(t *testing.T) {
		infos := newInfos()
		sortInfos(infos, SortAlphabetical, nil)
		want := []string{"b", "c", "d", "a"}
		if got := infoIDs(infos); !idsEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("recommended puts shared first, newest within", func(t *testing.T) {
		infos := newInfos()
		sortInfos(infos, SortRecommended, nil)
		want := []string{"b", "c", "d", "a"}
		if got := infoIDs(infos); !idsEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})
}

func TestOwnershipFilter(t *testing.T) {
	svc := &service{}
	teacher := user.User{ID: "t1", Roles: []string{user.RoleTeacher}}
	student := user.User{ID: "s1", Roles: []string{user.RoleStudent}}
	enrolled := []string{"c1", "c2"}

	tests := []struct {
		name      string
		usr       user.User
		enrolled  []string
		ownership string
		want      VisibilityFilter
	}{
		{
			name: "teacher default", usr: teacher,
			want: VisibilityFilter{OwnerID: "t1", IncludeShared: true},
		},
		{
			name: "teacher mine", usr: teacher, ownership: OwnershipMine,
			want: VisibilityFilter{OwnerID: "t1"},
		},
		{
			name: "teacher shared with me", usr: teacher, ownership: OwnershipShared,
			want: VisibilityFilter{IncludeShared: true, ExcludeOwnerID: "t1"},
		},
		{
			name: "student default", usr: student, enrolled: enrolled,
			want: VisibilityFilter{OwnerID: "s1", AssigneeID: "s1", ClassIDs: enrolled},
		},
		{
			name: "student assigned keeps assignment paths only", usr: student, enrolled: enrolled, ownership: OwnershipAssigned,
			want: VisibilityFilter{AssigneeID: "s1", ClassIDs: enrolled},
		},
		{
			name: "student shared with me drops own sets", usr: student, enrolled: enrolled, ownership: OwnershipShared,
			want: VisibilityFilter{AssigneeID: "s1", ClassIDs: enrolled, ExcludeOwnerID: "s1"},
		},
		{
			name: "unknown role matches nothing", usr: user.User{ID: "x"}, ownership: OwnershipMine,
			want: VisibilityFilter{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ownershipFilter(tt.usr, tt.enrolled, tt.ownership)
			if got.OwnerID != tt.want.OwnerID ||
				got.AssigneeID != tt.want.AssigneeID ||
				got.IncludeShared != tt.want.IncludeShared ||
				got.ExcludeOwnerID != tt.want.ExcludeOwnerID ||
				!idsEqual(got.ClassIDs, tt.want.ClassIDs) {
				t.Errorf("filter = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNarrowSets(t *testing.T) {
	sets := []StudySet{
		{ID: "a", Title: "Algebra Basics", Subject: "Math", Type: TypeFlashcards},
		{ID: "b", Title: "World Wars", Subject: "History", Type: TypeQuiz, Description: "dates and places"},
		{ID: "c", Title: "Geometry", Subject: "Math", Type: TypeQuiz},
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{name: "no filter keeps all", want: []string{"a", "b", "c"}},
		{name: "subject is case-insensitive", filter: QueryFilter{Subject: "math"}, want: []string{"a", "c"}},
		{name: "type is exact", filter: QueryFilter{Type: TypeQuiz}, want: []string{"b", "c"}},
		{name: "search matches description", filter: QueryFilter{Search: "DATES"}, want: []string{"b"}},
		{name: "search matches title", filter: QueryFilter{Search: "geo"}, want: []string{"c"}},
		{name: "combined", filter: QueryFilter{Subject: "Math", Type: TypeQuiz}, want: []string{"c"}},
		{name: "no match", filter: QueryFilter{Search: "zzz"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]StudySet, len(sets))
			copy(in, sets)
			got := narrowSets(in, &tt.filter)
			ids := make([]string, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			if !idsEqual(ids, tt.want) {
				t.Errorf("sets = %v, want %v", ids, tt.want)
			}
		})
	}
}

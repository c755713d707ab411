package dummydb

import (
	"sync"

	"github.com/kitabu/studyhall/core/classroom"
	"github.com/kitabu/studyhall/core/studyset"
	"github.com/kitabu/studyhall/core/user"
)

type (
	DB struct {
		user     *userTable
		class    *classTable
		studySet *studySetTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	classTable struct {
		sync.RWMutex
		table       map[string]*classroom.Class
		enrollments map[string]map[string]bool // class id -> student ids
	}

	studySetTable struct {
		sync.RWMutex
		table       map[string]*studyset.StudySet
		questions   map[string]*studyset.Question
		assignments map[string]*studyset.Assignment
		assignees   map[string]map[string]bool    // assignment id -> student ids
		progress    map[string]*studyset.Progress // user id + "/" + set id
		offline     map[string]map[string]bool    // user id -> set ids
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		class: &classTable{
			table:       make(map[string]*classroom.Class),
			enrollments: make(map[string]map[string]bool),
		},
		studySet: &studySetTable{
			table:       make(map[string]*studyset.StudySet),
			questions:   make(map[string]*studyset.Question),
			assignments: make(map[string]*studyset.Assignment),
			assignees:   make(map[string]map[string]bool),
			progress:    make(map[string]*studyset.Progress),
			offline:     make(map[string]map[string]bool),
		},
	}
	return db, nil
}

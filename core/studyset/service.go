package studyset

import (
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/kitabu/studyhall/core"
	"github.com/kitabu/studyhall/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("study set not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotSetOwner      = errors.New("not the owner of this study set")
	ErrStudentsOnly     = errors.New("only students can record progress")
	ErrTeachersOnly     = errors.New("only teachers can assign study sets")
)

type (
	Repository interface {
		CreateStudySet(set StudySet) (StudySet, error)
		GetStudySetByID(id string) (StudySet, error)
		// QueryVisibleStudySets returns every set matched by the visibility
		// filter. SQL implementations must agree with VisibilityFilter.Match.
		QueryVisibleStudySets(vis VisibilityFilter) ([]StudySet, error)
		UpdateStudySet(set StudySet) (StudySet, error)
		DeleteStudySet(id string) error

		CreateQuestion(q Question) (Question, error)
		QueryQuestionsBySet(setID string) ([]Question, error)
		GetQuestionByID(id string) (Question, error)
		UpdateQuestion(q Question) (Question, error)
		DeleteQuestion(id string) error
		// CountQuestionsBySets returns set id -> question count for the given sets.
		CountQuestionsBySets(setIDs ...string) (map[string]int, error)

		// CreateAssignment stores the assignment and its direct student rows.
		CreateAssignment(a Assignment, studentIDs []string) (Assignment, error)
		// QueryAssignmentGraph returns the assignment rows touching the
		// given sets plus assignment id -> directly assigned student ids.
		QueryAssignmentGraph(setIDs ...string) ([]Assignment, map[string][]string, error)

		UpsertProgress(p Progress) (Progress, error)
		QueryProgressByUser(userID string) ([]Progress, error)

		MarkSetOffline(userID, setID string) error
		UnmarkSetOffline(userID, setID string) error
		QueryOfflineSetIDs(userID string) ([]string, error)
	}

	Service interface {
		Create(usr user.User, ns NewStudySet) (StudySet, error)
		GetByID(usr user.User, id string) (StudySet, error)
		// Query returns the sets visible to usr, narrowed by filter and
		// sorted per filter.Sort.
		Query(usr user.User, filter *QueryFilter) ([]StudySetInfo, error)
		Update(usr user.User, id string, us UpdateStudySet) (StudySet, error)
		Delete(usr user.User, id string) error

		AddQuestion(usr user.User, setID string, nq NewQuestion) (Question, error)
		ListQuestions(usr user.User, setID string) ([]Question, error)
		UpdateQuestion(usr user.User, setID, questionID string, nq NewQuestion) (Question, error)
		DeleteQuestion(usr user.User, setID, questionID string) error

		RecordAttempt(usr user.User, setID string, att Attempt) (AttemptResult, error)
		// NextRecommendation suggests the next set for usr to study; ok is
		// false when nothing is eligible.
		NextRecommendation(usr user.User) (rec Recommendation, ok bool, err error)

		Assign(usr user.User, setID string, na NewAssignment) (Assignment, error)

		MarkOffline(usr user.User, setID string) error
		UnmarkOffline(usr user.User, setID string) error
	}

	// EnrollmentDirectory exposes the class membership lookups the
	// visibility and assignment paths need; satisfied by the classroom
	// repository.
	EnrollmentDirectory interface {
		QueryEnrolledClassIDs(studentID string) ([]string, error)
		QueryClassStudentIDs(classID string) ([]string, error)
	}

	// UserDirectory resolves user ids for assignment notifications;
	// satisfied by the user repository.
	UserDirectory interface {
		GetUserByID(id string) (user.User, error)
	}

	service struct {
		repo        Repository
		enrollments EnrollmentDirectory
		users       UserDirectory
		mailSvc     core.EmailService
		recommender *Recommender
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, enrollments EnrollmentDirectory, users UserDirectory, mailSvc core.EmailService) Service {
	return &service{
		repo:        repo,
		enrollments: enrollments,
		users:       users,
		mailSvc:     mailSvc,
		recommender: NewRecommender(),
	}
}

// enrolledClassIDs returns usr's class memberships, or nil for non-students.
func (svc *service) enrolledClassIDs(usr user.User) ([]string, error) {
	if !usr.IsStudent() {
		return nil, nil
	}
	return svc.enrollments.QueryEnrolledClassIDs(usr.ID)
}

// accessContext snapshots the assignment graph around the given sets.
func (svc *service) accessContext(usr user.User, setIDs ...string) (AccessContext, error) {
	enrolled, err := svc.enrolledClassIDs(usr)
	if err != nil {
		return AccessContext{}, err
	}
	assignments, assignees, err := svc.repo.QueryAssignmentGraph(setIDs...)
	if err != nil {
		return AccessContext{}, err
	}
	return AccessContext{
		EnrolledClassIDs: enrolled,
		Assignments:      assignments,
		DirectAssignees:  assignees,
	}, nil
}

// getVisibleSet loads a set and enforces CanView.
// Returns ErrNotFound for invisible sets so their existence is not leaked.
func (svc *service) getVisibleSet(usr user.User, id string) (StudySet, error) {
	set, err := svc.repo.GetStudySetByID(id)
	if err != nil {
		return StudySet{}, err
	}
	ac, err := svc.accessContext(usr, id)
	if err != nil {
		return StudySet{}, err
	}
	if !CanView(usr, set, ac) {
		return StudySet{}, ErrNotFound
	}
	return set, nil
}

// getOwnSet loads a set and enforces CanModify, after visibility.
func (svc *service) getOwnSet(usr user.User, id string) (StudySet, error) {
	set, err := svc.getVisibleSet(usr, id)
	if err != nil {
		return StudySet{}, err
	}
	if !CanModify(usr, set) {
		return StudySet{}, ErrNotSetOwner
	}
	return set, nil
}

func (svc *service) Create(usr user.User, ns NewStudySet) (StudySet, error) {
	now := time.Now().UTC()
	set := StudySet{
		Title:       ns.Title,
		Subject:     ns.Subject,
		Type:        ns.Type,
		Level:       ns.Level,
		Description: ns.Description,
		CreatorID:   usr.ID,
		Tags:        ns.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// A teacher's set becomes shared the moment it is assigned.
	// Students' sets are never shared.
	if !usr.IsStudent() {
		set.IsShared = ns.Assignment != nil
	}
	set, err := svc.repo.CreateStudySet(set)
	if err != nil {
		return StudySet{}, err
	}
	if ns.Assignment != nil && usr.IsTeacher() {
		if _, err := svc.assign(usr, set, *ns.Assignment); err != nil {
			return StudySet{}, err
		}
	}
	return set, nil
}

func (svc *service) GetByID(usr user.User, id string) (StudySet, error) {
	return svc.getVisibleSet(usr, id)
}

func (svc *service) Query(usr user.User, filter *QueryFilter) ([]StudySetInfo, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()

	enrolled, err := svc.enrolledClassIDs(usr)
	if err != nil {
		return nil, err
	}
	vis := svc.ownershipFilter(usr, enrolled, filter.Ownership)
	if vis.IsEmpty() {
		return []StudySetInfo{}, nil
	}

	sets, err := svc.repo.QueryVisibleStudySets(vis)
	if err != nil {
		return nil, err
	}
	sets = narrowSets(sets, filter)
	if len(sets) == 0 {
		return []StudySetInfo{}, nil
	}

	setIDs := make([]string, len(sets))
	for i, s := range sets {
		setIDs[i] = s.ID
	}
	assignments, assignees, err := svc.repo.QueryAssignmentGraph(setIDs...)
	if err != nil {
		return nil, err
	}
	ac := AccessContext{EnrolledClassIDs: enrolled, Assignments: assignments, DirectAssignees: assignees}

	counts, err := svc.repo.CountQuestionsBySets(setIDs...)
	if err != nil {
		return nil, err
	}
	progress, err := svc.repo.QueryProgressByUser(usr.ID)
	if err != nil {
		return nil, err
	}
	progressBySet := make(map[string]Progress, len(progress))
	for _, p := range progress {
		progressBySet[p.SetID] = p
	}
	offlineIDs, err := svc.repo.QueryOfflineSetIDs(usr.ID)
	if err != nil {
		return nil, err
	}
	offline := make(map[string]bool, len(offlineIDs))
	for _, id := range offlineIDs {
		offline[id] = true
	}

	infos := make([]StudySetInfo, len(sets))
	for i, set := range sets {
		info := StudySetInfo{
			StudySet:     set,
			ItemCount:    counts[set.ID],
			IsDownloaded: offline[set.ID],
		}
		if usr.IsStudent() {
			info.IsAssigned = ac.assignedTo(usr.ID, set.ID)
		} else {
			info.IsAssigned = hasAssignment(assignments, set.ID)
		}
		if p, ok := progressBySet[set.ID]; ok {
			mastery := p.MasteryPercentage
			info.Mastery = &mastery
		}
		infos[i] = info
	}

	sortInfos(infos, filter.Sort, progressBySet)
	return infos, nil
}

// ownershipFilter narrows the base visibility predicate per the requested
// ownership view.
func (svc *service) ownershipFilter(usr user.User, enrolled []string, ownership string) VisibilityFilter {
	base := BuildListFilter(usr, enrolled)
	switch ownership {
	case OwnershipMine:
		if base.IsEmpty() {
			return base
		}
		return VisibilityFilter{OwnerID: usr.ID}
	case OwnershipShared:
		// Everything reachable that the viewer did not create.
		base.OwnerID = ""
		base.ExcludeOwnerID = usr.ID
		return base
	case OwnershipAssigned:
		// Assignment paths only: direct student rows and class rows.
		if base.IsEmpty() {
			return base
		}
		return VisibilityFilter{AssigneeID: usr.ID, ClassIDs: enrolled}
	}
	return base
}

func narrowSets(sets []StudySet, filter *QueryFilter) []StudySet {
	out := sets[:0]
	for _, set := range sets {
		if filter.Subject != "" && !strings.EqualFold(set.Subject, filter.Subject) {
			continue
		}
		if filter.Type != "" && set.Type != filter.Type {
			continue
		}
		if filter.Search != "" && !matchesSearch(set, filter.Search) {
			continue
		}
		out = append(out, set)
	}
	return out
}

// matchesSearch does a case-insensitive substring match on title, subject
// and description.
func matchesSearch(set StudySet, search string) bool {
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(set.Title), s) ||
		strings.Contains(strings.ToLower(set.Subject), s) ||
		strings.Contains(strings.ToLower(set.Description), s)
}

func hasAssignment(assignments []Assignment, setID string) bool {
	for _, a := range assignments {
		if a.SetID == setID {
			return true
		}
	}
	return false
}

func sortInfos(infos []StudySetInfo, sortKey string, progress map[string]Progress) {
	switch sortKey {
	case SortRecentlyCreated:
		sort.SliceStable(infos, func(i, j int) bool {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		})
	case SortAlphabetical:
		sort.SliceStable(infos, func(i, j int) bool {
			return strings.ToLower(infos[i].Title) < strings.ToLower(infos[j].Title)
		})
	case SortRecommended:
		// Shared sets first, newest first within each group.
		sort.SliceStable(infos, func(i, j int) bool {
			if infos[i].IsShared != infos[j].IsShared {
				return infos[i].IsShared
			}
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		})
	default: // SortRecentlyUsed
		// Sets with recorded activity first, most recent activity first;
		// untouched sets follow, newest update first.
		sort.SliceStable(infos, func(i, j int) bool {
			pi, iOK := progress[infos[i].ID]
			pj, jOK := progress[infos[j].ID]
			if iOK != jOK {
				return iOK
			}
			if iOK && jOK && !pi.LastActivity.Equal(pj.LastActivity) {
				return pi.LastActivity.After(pj.LastActivity)
			}
			return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
		})
	}
}

func (svc *service) Update(usr user.User, id string, us UpdateStudySet) (StudySet, error) {
	set, err := svc.getOwnSet(usr, id)
	if err != nil {
		return StudySet{}, err
	}
	set.Title = us.Title
	set.Subject = us.Subject
	set.Level = us.Level
	set.Description = us.Description
	set.Tags = us.Tags
	set.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudySet(set)
}

func (svc *service) Delete(usr user.User, id string) error {
	if _, err := svc.getOwnSet(usr, id); err != nil {
		return err
	}
	return svc.repo.DeleteStudySet(id)
}

func (svc *service) AddQuestion(usr user.User, setID string, nq NewQuestion) (Question, error) {
	if _, err := svc.getOwnSet(usr, setID); err != nil {
		return Question{}, err
	}
	q := Question{
		SetID:         setID,
		Type:          nq.Type,
		Content:       nq.Content,
		CorrectAnswer: nq.CorrectAnswer,
	}
	for i, text := range nq.Options {
		q.Options = append(q.Options, QuestionOption{Text: text, Order: i + 1})
	}
	return svc.repo.CreateQuestion(q)
}

func (svc *service) ListQuestions(usr user.User, setID string) ([]Question, error) {
	if _, err := svc.getVisibleSet(usr, setID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestionsBySet(setID)
}

// getOwnQuestion loads a question and checks it belongs to a set usr owns.
func (svc *service) getOwnQuestion(usr user.User, setID, questionID string) (Question, error) {
	if _, err := svc.getOwnSet(usr, setID); err != nil {
		return Question{}, err
	}
	q, err := svc.repo.GetQuestionByID(questionID)
	if err != nil {
		return Question{}, err
	}
	if q.SetID != setID {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (svc *service) UpdateQuestion(usr user.User, setID, questionID string, nq NewQuestion) (Question, error) {
	q, err := svc.getOwnQuestion(usr, setID, questionID)
	if err != nil {
		return Question{}, err
	}
	q.Type = nq.Type
	q.Content = nq.Content
	q.CorrectAnswer = nq.CorrectAnswer
	q.Options = nil
	for i, text := range nq.Options {
		q.Options = append(q.Options, QuestionOption{Text: text, Order: i + 1})
	}
	return svc.repo.UpdateQuestion(q)
}

func (svc *service) DeleteQuestion(usr user.User, setID, questionID string) error {
	if _, err := svc.getOwnQuestion(usr, setID, questionID); err != nil {
		return err
	}
	return svc.repo.DeleteQuestion(questionID)
}

func (svc *service) RecordAttempt(usr user.User, setID string, att Attempt) (AttemptResult, error) {
	if !usr.IsStudent() {
		return AttemptResult{}, ErrStudentsOnly
	}
	if _, err := svc.getVisibleSet(usr, setID); err != nil {
		return AttemptResult{}, err
	}
	questions, err := svc.repo.QueryQuestionsBySet(setID)
	if err != nil {
		return AttemptResult{}, err
	}
	res := gradeAttempt(questions, att.Answers)
	_, err = svc.repo.UpsertProgress(Progress{
		UserID:            usr.ID,
		SetID:             setID,
		MasteryPercentage: res.MasteryPercentage,
		ItemsCompleted:    res.CorrectAnswers,
		TotalItems:        res.TotalQuestions,
		LastActivity:      time.Now().UTC(),
	})
	if err != nil {
		return AttemptResult{}, err
	}
	return res, nil
}

func (svc *service) NextRecommendation(usr user.User) (Recommendation, bool, error) {
	enrolled, err := svc.enrolledClassIDs(usr)
	if err != nil {
		return Recommendation{}, false, err
	}
	candidates, err := svc.repo.QueryVisibleStudySets(BuildListFilter(usr, enrolled))
	if err != nil {
		return Recommendation{}, false, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	history, err := svc.repo.QueryProgressByUser(usr.ID)
	if err != nil {
		return Recommendation{}, false, err
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].LastActivity.After(history[j].LastActivity)
	})

	snap := Snapshot{History: history, Candidates: candidates}
	if len(history) > 0 {
		snap.RecentSet = svc.resolveRecentSet(history[0].SetID, candidates)
	}
	rec, ok := svc.recommender.Next(snap)
	return rec, ok, nil
}

// resolveRecentSet finds the set behind the latest progress row, reaching
// past the candidate pool if the set is no longer visible.
func (svc *service) resolveRecentSet(setID string, candidates []StudySet) StudySet {
	for _, set := range candidates {
		if set.ID == setID {
			return set
		}
	}
	if set, err := svc.repo.GetStudySetByID(setID); err == nil {
		return set
	}
	return StudySet{ID: setID}
}

func (svc *service) Assign(usr user.User, setID string, na NewAssignment) (Assignment, error) {
	if !usr.IsTeacher() {
		return Assignment{}, ErrTeachersOnly
	}
	set, err := svc.getOwnSet(usr, setID)
	if err != nil {
		return Assignment{}, err
	}
	a, err := svc.assign(usr, set, na)
	if err != nil {
		return Assignment{}, err
	}
	if !set.IsShared {
		set.IsShared = true
		set.UpdatedAt = time.Now().UTC()
		if _, err := svc.repo.UpdateStudySet(set); err != nil {
			return Assignment{}, err
		}
	}
	return a, nil
}

func (svc *service) assign(usr user.User, set StudySet, na NewAssignment) (Assignment, error) {
	studentIDs := na.StudentIDs
	if na.AssignToAll {
		ids, err := svc.enrollments.QueryClassStudentIDs(na.ClassID)
		if err != nil {
			return Assignment{}, err
		}
		studentIDs = ids
	}
	a := Assignment{
		SetID:      set.ID,
		ClassID:    na.ClassID,
		AssignedBy: usr.ID,
		AssignedAt: time.Now().UTC(),
		DueDate:    na.DueDate,
	}
	a, err := svc.repo.CreateAssignment(a, studentIDs)
	if err != nil {
		return Assignment{}, err
	}
	go svc.sendAssignmentMail(set, a, studentIDs)
	return a, nil
}

func (svc *service) sendAssignmentMail(set StudySet, a Assignment, studentIDs []string) {
	var msgs []*core.EmailMessage
	for _, id := range studentIDs {
		usr, err := svc.users.GetUserByID(id)
		if err != nil {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "New Study Set Assigned",
			TemplateName: "set-assigned",
			TemplateData: struct {
				Name    string
				Title   string
				Subject string
				DueDate *time.Time
			}{
				Name:    usr.Name,
				Title:   set.Title,
				Subject: set.Subject,
				DueDate: a.DueDate,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) MarkOffline(usr user.User, setID string) error {
	if _, err := svc.getVisibleSet(usr, setID); err != nil {
		return err
	}
	return svc.repo.MarkSetOffline(usr.ID, setID)
}

func (svc *service) UnmarkOffline(usr user.User, setID string) error {
	return svc.repo.UnmarkSetOffline(usr.ID, setID)
}

package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

const upcomingLimit = 5

type fieldErrors map[string][]string

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	errs := fieldErrors{}
	if in.Email == "" {
		errs["email"] = []string{"This field may not be blank."}
	}
	if in.Password == "" {
		errs["password"] = []string{"This field may not be blank."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[in.Email]; taken && in.Email != "" {
		errs["email"] = []string{"user with this email already exists."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	user := s.addUserLocked(in.Email, in.Password)
	writeJSON(w, http.StatusCreated, api.AuthResponse{Token: s.tokenForLocked(user.ID), User: &user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}
	if in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, detail("Please provide both email and password"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[in.Email]
	if !ok || s.accounts[id].password != in.Password {
		writeJSON(w, http.StatusUnauthorized, detail("Invalid credentials"))
		return
	}

	user := s.accounts[id].user
	writeJSON(w, http.StatusOK, api.AuthResponse{Token: s.tokenForLocked(id), User: &user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)

	s.mu.Lock()
	for token, id := range s.tokens {
		if id == userID {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.accounts[userFrom(r)].user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, user)
}

// Semesters.

type semesterBody struct {
	Year      *int        `json:"year"`
	Season    *api.Season `json:"season"`
	IsCurrent *bool       `json:"is_current"`
}

func (s *Server) listSemesters(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)

	s.mu.Lock()
	out := []api.Semester{}
	for _, rec := range s.sortedSemestersLocked() {
		if rec.owner == owner {
			out = append(out, s.semesterViewLocked(rec))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) currentSemester(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.sortedSemestersLocked() {
		if rec.owner == owner && rec.IsCurrent {
			writeJSON(w, http.StatusOK, s.semesterViewLocked(rec))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            nil,
		"year":          nil,
		"season":        nil,
		"is_current":    false,
		"courses":       []any{},
		"courses_count": 0,
	})
}

func (s *Server) getSemester(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedSemesterLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}
	writeJSON(w, http.StatusOK, s.semesterViewLocked(rec))
}

func (s *Server) createSemester(w http.ResponseWriter, r *http.Request) {
	var in semesterBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	owner := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errs := s.validateSemesterLocked(owner, 0, in, true); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	current := in.IsCurrent != nil && *in.IsCurrent
	if current {
		s.clearCurrentLocked(owner)
	}

	s.nextID++
	rec := &semesterRecord{owner: owner, Semester: api.Semester{
		ID: s.nextID, Year: *in.Year, Season: *in.Season, IsCurrent: current,
	}}
	s.semesters[rec.ID] = rec
	writeJSON(w, http.StatusCreated, s.semesterViewLocked(rec))
}

func (s *Server) updateSemester(w http.ResponseWriter, r *http.Request) {
	var in semesterBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedSemesterLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}

	full := r.Method == http.MethodPut
	if errs := s.validateSemesterLocked(rec.owner, rec.ID, in, full); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	if in.IsCurrent != nil && *in.IsCurrent {
		s.clearCurrentLocked(rec.owner)
	}
	if in.Year != nil {
		rec.Year = *in.Year
	}
	if in.Season != nil {
		rec.Season = *in.Season
	}
	if in.IsCurrent != nil {
		rec.IsCurrent = *in.IsCurrent
	}
	writeJSON(w, http.StatusOK, s.semesterViewLocked(rec))
}

func (s *Server) deleteSemester(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedSemesterLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}

	for id, c := range s.courses {
		if c.Semester == rec.ID {
			s.deleteCourseLocked(id)
		}
	}
	delete(s.semesters, rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) validateSemesterLocked(owner, id int, in semesterBody, full bool) fieldErrors {
	errs := fieldErrors{}
	if in.Year == nil && full {
		errs["year"] = []string{"This field is required."}
	} else if in.Year != nil && (*in.Year < api.MinYear || *in.Year > api.MaxYear) {
		errs["year"] = []string{"Year must be between 2000 and 2100"}
	}
	if in.Season == nil && full {
		errs["season"] = []string{"This field is required."}
	} else if in.Season != nil && !in.Season.Valid() {
		errs["season"] = []string{`"` + string(*in.Season) + `" is not a valid choice.`}
	}
	if len(errs) > 0 || in.Year == nil || in.Season == nil {
		return errs
	}

	for _, rec := range s.semesters {
		if rec.owner == owner && rec.ID != id && rec.Year == *in.Year && rec.Season == *in.Season {
			errs["non_field_errors"] = []string{"The fields year, season must make a unique set."}
		}
	}
	return errs
}

func (s *Server) clearCurrentLocked(owner int) {
	for _, rec := range s.semesters {
		if rec.owner == owner {
			rec.IsCurrent = false
		}
	}
}

func (s *Server) ownedSemesterLocked(r *http.Request) (*semesterRecord, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, false
	}
	rec, ok := s.semesters[id]
	if !ok || rec.owner != userFrom(r) {
		return nil, false
	}
	return rec, true
}

func (s *Server) sortedSemestersLocked() []*semesterRecord {
	out := make([]*semesterRecord, 0, len(s.semesters))
	for _, rec := range s.semesters {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) semesterViewLocked(rec *semesterRecord) api.Semester {
	view := rec.Semester
	view.Courses = []api.Course{}
	for _, c := range s.sortedCoursesLocked() {
		if c.Semester == rec.ID {
			view.Courses = append(view.Courses, s.courseViewLocked(c))
		}
	}
	view.CoursesCount = len(view.Courses)
	return view
}

// Courses.

type courseBody struct {
	Semester    *int    `json:"semester"`
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Credits     *int    `json:"credits"`
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)

	s.mu.Lock()
	out := []api.Course{}
	for _, rec := range s.sortedCoursesLocked() {
		if rec.owner == owner {
			out = append(out, s.courseViewLocked(rec))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedCourseLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}
	writeJSON(w, http.StatusOK, s.courseViewLocked(rec))
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	var in courseBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	owner := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errs := s.validateCourseLocked(owner, in, true); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.nextID++
	rec := &courseRecord{owner: owner, Course: api.Course{
		ID: s.nextID, Semester: *in.Semester, Code: *in.Code, Name: *in.Name, Credits: *in.Credits,
	}}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	s.courses[rec.ID] = rec
	writeJSON(w, http.StatusCreated, s.courseViewLocked(rec))
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request) {
	var in courseBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedCourseLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}

	if errs := s.validateCourseLocked(rec.owner, in, r.Method == http.MethodPut); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	if in.Semester != nil {
		rec.Semester = *in.Semester
	}
	if in.Code != nil {
		rec.Code = *in.Code
	}
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.Credits != nil {
		rec.Credits = *in.Credits
	}
	writeJSON(w, http.StatusOK, s.courseViewLocked(rec))
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedCourseLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}
	s.deleteCourseLocked(rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteCourseLocked(id int) {
	for taskID, t := range s.tasks {
		if t.Course == id {
			delete(s.tasks, taskID)
		}
	}
	delete(s.courses, id)
}

func (s *Server) validateCourseLocked(owner int, in courseBody, full bool) fieldErrors {
	errs := fieldErrors{}
	required := func(field string, present bool) {
		if full && !present {
			errs[field] = []string{"This field is required."}
		}
	}

	required("semester", in.Semester != nil)
	required("code", in.Code != nil)
	required("name", in.Name != nil)
	required("credits", in.Credits != nil)

	if in.Semester != nil {
		sem, ok := s.semesters[*in.Semester]
		if !ok || sem.owner != owner {
			errs["semester"] = []string{`Invalid pk "` + strconv.Itoa(*in.Semester) + `" - object does not exist.`}
		}
	}
	if in.Code != nil && (strings.TrimSpace(*in.Code) == "" || len([]rune(*in.Code)) > api.MaxCourseCodeLength) {
		errs["code"] = []string{"Ensure this field has no more than 20 characters and is not blank."}
	}
	if in.Name != nil && (strings.TrimSpace(*in.Name) == "" || len([]rune(*in.Name)) > api.MaxCourseNameLength) {
		errs["name"] = []string{"Ensure this field has no more than 200 characters and is not blank."}
	}
	return errs
}

func (s *Server) ownedCourseLocked(r *http.Request) (*courseRecord, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, false
	}
	rec, ok := s.courses[id]
	if !ok || rec.owner != userFrom(r) {
		return nil, false
	}
	return rec, true
}

func (s *Server) sortedCoursesLocked() []*courseRecord {
	out := make([]*courseRecord, 0, len(s.courses))
	for _, rec := range s.courses {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) courseViewLocked(rec *courseRecord) api.Course {
	view := rec.Course
	view.TasksCount, view.CompletedTasksCount = 0, 0
	for _, t := range s.tasks {
		if t.Course != rec.ID {
			continue
		}
		view.TasksCount++
		if t.Status == api.StatusCompleted {
			view.CompletedTasksCount++
		}
	}
	return view
}

// Tasks.

type taskBody struct {
	Course      *int            `json:"course"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     *time.Time      `json:"due_date"`
	Priority    *api.Priority   `json:"priority"`
	Status      *api.TaskStatus `json:"status"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)

	s.mu.Lock()
	out := []api.Task{}
	for _, rec := range s.sortedTasksLocked(func(a, b *taskRecord) bool { return a.ID < b.ID }) {
		if rec.owner == owner {
			out = append(out, rec.Task)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) upcomingTasks(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)

	s.mu.Lock()
	out := []api.Task{}
	byDue := func(a, b *taskRecord) bool {
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ID < b.ID
	}
	for _, rec := range s.sortedTasksLocked(byDue) {
		if rec.owner == owner && rec.Status.Pending() && len(out) < upcomingLimit {
			out = append(out, rec.Task)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedTaskLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}
	writeJSON(w, http.StatusOK, rec.Task)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in taskBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	owner := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errs := s.validateTaskLocked(owner, in, true); len(errs) > 0 {
		// Task creation wraps field errors under "error".
		writeJSON(w, http.StatusBadRequest, map[string]fieldErrors{"error": errs})
		return
	}

	s.nextID++
	rec := &taskRecord{owner: owner, Task: api.Task{
		ID: s.nextID, Course: *in.Course, Title: *in.Title, DueDate: *in.DueDate,
		Priority: api.PriorityMedium, Status: api.StatusTodo,
	}}
	applyTask(rec, in)
	s.tasks[rec.ID] = rec
	writeJSON(w, http.StatusCreated, rec.Task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var in taskBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedTaskLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}

	if errs := s.validateTaskLocked(rec.owner, in, r.Method == http.MethodPut); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	applyTask(rec, in)
	writeJSON(w, http.StatusOK, rec.Task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedTaskLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
		return
	}
	delete(s.tasks, rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func applyTask(rec *taskRecord, in taskBody) {
	if in.Course != nil {
		rec.Course = *in.Course
	}
	if in.Title != nil {
		rec.Title = *in.Title
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.DueDate != nil {
		rec.DueDate = *in.DueDate
	}
	if in.Priority != nil {
		rec.Priority = *in.Priority
	}
	if in.Status != nil {
		rec.Status = *in.Status
	}
}

func (s *Server) validateTaskLocked(owner int, in taskBody, full bool) fieldErrors {
	errs := fieldErrors{}

	if in.Course == nil && full {
		errs["course"] = []string{"This field is required."}
	} else if in.Course != nil {
		c, ok := s.courses[*in.Course]
		if !ok || c.owner != owner {
			errs["course"] = []string{`Invalid pk "` + strconv.Itoa(*in.Course) + `" - object does not exist.`}
		}
	}
	if in.Title == nil && full {
		errs["title"] = []string{"This field is required."}
	} else if in.Title != nil && (strings.TrimSpace(*in.Title) == "" || len([]rune(*in.Title)) > api.MaxTaskTitleLength) {
		errs["title"] = []string{"Ensure this field has no more than 200 characters and is not blank."}
	}
	if full && (in.DueDate == nil || in.DueDate.IsZero()) {
		errs["due_date"] = []string{"Due date is required"}
	}
	if in.Priority != nil && !in.Priority.Valid() {
		errs["priority"] = []string{`"` + string(*in.Priority) + `" is not a valid choice.`}
	}
	if in.Status != nil && !in.Status.Valid() {
		errs["status"] = []string{`"` + string(*in.Status) + `" is not a valid choice.`}
	}
	return errs
}

func (s *Server) ownedTaskLocked(r *http.Request) (*taskRecord, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, false
	}
	rec, ok := s.tasks[id]
	if !ok || rec.owner != userFrom(r) {
		return nil, false
	}
	return rec, true
}

func (s *Server) sortedTasksLocked(less func(a, b *taskRecord) bool) []*taskRecord {
	out := make([]*taskRecord, 0, len(s.tasks))
	for _, rec := range s.tasks {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

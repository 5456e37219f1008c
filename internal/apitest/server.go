// Package apitest provides an in-process fake of the planner backend for
// tests. Every request it receives is checked against the embedded contract.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/contract"
)

// Request is a request the fake received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// Failure replaces the response for one route.
type Failure struct {
	Status int
	Body   string
	// Drop closes the connection without a response.
	Drop bool
}

type account struct {
	user     api.User
	password string
}

type semesterRecord struct {
	owner int
	api.Semester
}

type courseRecord struct {
	owner int
	api.Course
}

type taskRecord struct {
	owner int
	api.Task
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	t        testing.TB
	contract *contract.Validator

	mu        sync.Mutex
	nextID    int
	accounts  map[int]*account
	emails    map[string]int
	tokens    map[string]int
	semesters map[int]*semesterRecord
	courses   map[int]*courseRecord
	tasks     map[int]*taskRecord
	failures  map[string]Failure
	requests  []Request
}

// NewServer starts a fake backend bound to IPv4 loopback. It is closed when
// the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	v, err := contract.Load(context.Background())
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	s := &Server{
		t:         t,
		contract:  v,
		accounts:  make(map[int]*account),
		emails:    make(map[string]int),
		tokens:    make(map[string]int),
		semesters: make(map[int]*semesterRecord),
		courses:   make(map[int]*courseRecord),
		tasks:     make(map[int]*taskRecord),
		failures:  make(map[string]Failure),
	}

	s.Server = &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: s.routes()},
	}
	s.Start()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.checkContract, s.injectFailures)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register/", s.handleRegister)
		r.Post("/login/", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/logout/", s.handleLogout)
			r.Get("/user/", s.handleUser)
		})
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/semesters/", s.listSemesters)
		r.Post("/semesters/", s.createSemester)
		r.Get("/semesters/current/", s.currentSemester)
		r.Get("/semesters/{id}/", s.getSemester)
		r.Put("/semesters/{id}/", s.updateSemester)
		r.Patch("/semesters/{id}/", s.updateSemester)
		r.Delete("/semesters/{id}/", s.deleteSemester)

		r.Get("/courses/", s.listCourses)
		r.Post("/courses/", s.createCourse)
		r.Get("/courses/{id}/", s.getCourse)
		r.Put("/courses/{id}/", s.updateCourse)
		r.Patch("/courses/{id}/", s.updateCourse)
		r.Delete("/courses/{id}/", s.deleteCourse)

		r.Get("/tasks/", s.listTasks)
		r.Post("/tasks/", s.createTask)
		r.Get("/tasks/upcoming/", s.upcomingTasks)
		r.Get("/tasks/{id}/", s.getTask)
		r.Put("/tasks/{id}/", s.updateTask)
		r.Patch("/tasks/{id}/", s.updateTask)
		r.Delete("/tasks/{id}/", s.deleteTask)
	})

	return r
}

// record stores every request and buffers its body for later handlers.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get(api.HeaderAuthorization),
			RequestID:     r.Header.Get(api.HeaderRequestID),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// checkContract fails the test when the client sends a request the contract
// does not describe.
func (s *Server) checkContract(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := s.contract.CheckBody(r.Method, r.URL.Path, body); err != nil {
			s.t.Errorf("apitest: %s %s violates contract: %v", r.Method, r.URL.Path, err)
			writeJSON(w, http.StatusBadRequest, detail("contract: "+err.Error()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[routeKey(r.Method, r.URL.Path)]
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if f.Drop {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			f.Status = http.StatusBadGateway
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.Status)
		_, _ = io.WriteString(w, f.Body)
	})
}

// authenticate implements token authentication the way the backend does.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(api.HeaderAuthorization)
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			return
		}

		token, ok := strings.CutPrefix(header, api.TokenScheme+" ")
		s.mu.Lock()
		userID, known := s.tokens[token]
		s.mu.Unlock()
		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, detail("Invalid token."))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

type userKey struct{}

func userFrom(r *http.Request) int {
	id, _ := r.Context().Value(userKey{}).(int)
	return id
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AddUser creates an account directly.
func (s *Server) AddUser(email, password string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password)
}

func (s *Server) addUserLocked(email, password string) api.User {
	s.nextID++
	acc := &account{
		user:     api.User{ID: s.nextID, Email: email, Username: email},
		password: password,
	}
	s.accounts[acc.user.ID] = acc
	s.emails[email] = acc.user.ID
	return acc.user
}

// IssueToken returns the credential for email, creating one if needed.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		s.t.Fatalf("apitest: no user %q", email)
	}
	return s.tokenForLocked(id)
}

func (s *Server) tokenForLocked(userID int) string {
	for token, id := range s.tokens {
		if id == userID {
			return token
		}
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tokens[token] = userID
	return token
}

// RevokeToken invalidates a credential, as if it expired server-side.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// TokenValid reports whether the backend still accepts token.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// Fail makes every request to method and path answer with status and body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = Failure{Status: status, Body: body}
}

// Drop makes every request to method and path fail at the transport level.
func (s *Server) Drop(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = Failure{Drop: true}
}

// Restore removes an injected failure.
func (s *Server) Restore(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// SeedSemester stores a semester owned by email.
func (s *Server) SeedSemester(email string, in api.SemesterInput) api.Semester {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.ownerLocked(email)
	if in.IsCurrent {
		s.clearCurrentLocked(owner)
	}
	s.nextID++
	rec := &semesterRecord{owner: owner, Semester: api.Semester{
		ID: s.nextID, Year: in.Year, Season: in.Season, IsCurrent: in.IsCurrent,
	}}
	s.semesters[rec.ID] = rec
	return s.semesterViewLocked(rec)
}

// SeedCourse stores a course owned by email.
func (s *Server) SeedCourse(email string, in api.CourseInput) api.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.ownerLocked(email)
	s.nextID++
	rec := &courseRecord{owner: owner, Course: api.Course{
		ID: s.nextID, Semester: in.Semester, Code: in.Code, Name: in.Name,
		Description: in.Description, Credits: in.Credits,
	}}
	s.courses[rec.ID] = rec
	return s.courseViewLocked(rec)
}

// SeedTask stores a task owned by email.
func (s *Server) SeedTask(email string, in api.TaskInput) api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.ownerLocked(email)
	s.nextID++
	rec := &taskRecord{owner: owner, Task: api.Task{
		ID: s.nextID, Course: in.Course, Title: in.Title, Description: in.Description,
		DueDate: in.DueDate, Priority: in.Priority, Status: in.Status,
	}}
	if rec.Priority == "" {
		rec.Priority = api.PriorityMedium
	}
	if rec.Status == "" {
		rec.Status = api.StatusTodo
	}
	s.tasks[rec.ID] = rec
	return rec.Task
}

func (s *Server) ownerLocked(email string) int {
	id, ok := s.emails[email]
	if !ok {
		s.t.Fatalf("apitest: no user %q", email)
	}
	return id
}

func (s *Server) String() string {
	return fmt.Sprintf("apitest.Server(%s)", s.URL)
}

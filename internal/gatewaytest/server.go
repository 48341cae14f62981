// Package gatewaytest provides an in-memory implementation of the gateway
// admin API for tests. It speaks the same JSON as the real gateway: integer
// record ids, {"detail": "..."} error bodies and bearer authentication.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/switchboard/internal/uuid"
)

// Providers accepted by POST /admin/keys.
var Providers = []string{
	"openai", "anthropic", "gemini", "mistral", "deepseek", "groq",
	"perplexity", "together", "openrouter", "cohere", "xai",
}

// Request records one call received by the server.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

// Key is the server-side view of a credential record.
type Key struct {
	ID        int
	Name      string
	Provider  string
	KeyValue  string
	IsActive  bool
	UsedToday float64
}

type user struct {
	username string
	email    string
	password string
	role     string
}

// Server is a fake gateway. The zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]user
	tokens   map[string]string // token -> username
	keys     []Key
	nextID   int
	logs     []map[string]any
	rawKeys  []map[string]any
	failures map[string]failure
	requests []Request
	chats    []Chat
}

// ChatMessage is one turn received by POST /chat.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat records one POST /chat body.
type Chat struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type failure struct {
	status int
	detail string
}

// NewServer starts a fake gateway with no users, keys or logs.
func NewServer() *Server {
	s := &Server{
		users:    make(map[string]user),
		tokens:   make(map[string]string),
		failures: make(map[string]failure),
		nextID:   1,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)
	r.With(s.auth).Get("/auth/me", s.me)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/keys", s.listKeys)
		r.Post("/keys", s.createKey)
		r.Patch("/keys/{keyID}", s.updateKey)
		r.Delete("/keys/{keyID}", s.deleteKey)
		r.Get("/logs", s.listLogs)
	})
	r.Post("/chat", s.chat)
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{username: username, password: password, role: role}
}

// IssueToken returns a valid bearer token for username without a login call.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + uuid.New()
	s.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// FailNext makes the next request matching "METHOD /path" fail with status
// and detail. The path is the router pattern, e.g. "PATCH /admin/keys/{keyID}".
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

// SeedKey stores a key record and returns its id.
func (s *Server) SeedKey(k Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.ID = s.nextID
	s.nextID++
	s.keys = append(s.keys, k)
	return k.ID
}

// SeedRawKeys appends literal JSON objects to every /admin/keys listing, for
// exercising normalization of odd server payloads.
func (s *Server) SeedRawKeys(records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawKeys = append(s.rawKeys, records...)
}

// Keys returns a snapshot of the stored key records.
func (s *Server) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Key(nil), s.keys...)
}

// AddLog appends a request log entry served by /admin/logs.
func (s *Server) AddLog(entry map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
}

// Chats returns every POST /chat body received so far.
func (s *Server) Chats() []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chat(nil), s.chats...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many received requests match method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + routePattern(r.URL.Path)
		s.mu.Lock()
		f, ok := s.failures[route]
		if ok {
			delete(s.failures, route)
		}
		s.mu.Unlock()
		if ok {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routePattern(path string) string {
	if rest, ok := strings.CutPrefix(path, "/admin/keys/"); ok && rest != "" {
		return "/admin/keys/{keyID}"
	}
	return path
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := s.IssueToken(req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	role := "user"
	if len(s.users) == 0 {
		role = "admin"
	}
	s.users[req.Username] = user{username: req.Username, email: req.Email, password: req.Password, role: role}
	writeJSON(w, http.StatusOK, map[string]any{"id": len(s.users), "username": req.Username, "email": req.Email, "role": role})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	u := s.users[s.tokens[token]]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"username": u.username, "role": u.role})
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.keys)+len(s.rawKeys))
	for _, k := range s.keys {
		out = append(out, keyJSON(k))
	}
	out = append(out, s.rawKeys...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Provider string `json:"provider"`
		KeyValue string `json:"key_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if !validProvider(req.Provider) {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unsupported provider %q", req.Provider))
		return
	}
	if req.KeyValue == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "key_value is required")
		return
	}
	k := Key{Name: req.Name, Provider: req.Provider, KeyValue: req.KeyValue, IsActive: true}
	k.ID = s.SeedKey(k)
	writeJSON(w, http.StatusOK, keyJSON(k))
}

func (s *Server) updateKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "keyID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Key not found")
		return
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.keys {
		if s.keys[i].ID == id {
			if req.IsActive != nil {
				s.keys[i].IsActive = *req.IsActive
			}
			writeJSON(w, http.StatusOK, keyJSON(s.keys[i]))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Key not found")
}

func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "keyID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Key not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.keys {
		if s.keys[i].ID == id {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Key not found")
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]map[string]any{}, s.logs...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// chat answers with an echo of the last message, served by the first active
// key. Like the real gateway it does not require a bearer token.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req Chat
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	switch req.Model {
	case "smart", "fast", "cheap", "any":
	default:
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model")
		return
	}

	s.mu.Lock()
	s.chats = append(s.chats, req)
	var provider string
	for _, k := range s.keys {
		if k.IsActive {
			provider = k.Provider
			break
		}
	}
	n := len(s.chats)
	s.mu.Unlock()

	if provider == "" {
		writeDetail(w, http.StatusInternalServerError, "No available providers for model "+req.Model)
		return
	}
	last := req.Messages[len(req.Messages)-1].Content
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-%d", n),
		"object":  "chat.completion",
		"created": 1770000000 + n,
		"model":   provider + "-test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": "echo: " + last},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{
			"prompt_tokens":     len(req.Messages),
			"completion_tokens": 2,
			"total_tokens":      len(req.Messages) + 2,
		},
	})
}

func keyJSON(k Key) map[string]any {
	prefix := k.KeyValue
	if len(prefix) > 7 {
		prefix = prefix[:7]
	}
	return map[string]any{
		"id":         k.ID,
		"name":       k.Name,
		"provider":   k.Provider,
		"key_prefix": prefix + "...",
		"is_active":  k.IsActive,
		"used_today": k.UsedToday,
	}
}

func validProvider(p string) bool {
	for _, v := range Providers {
		if v == p {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/optimizer"
	"github.com/promptforge/api/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory stand-in for repository.Store.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[uuid.UUID]*models.Session
	turns    map[uuid.UUID][]models.Conversation
	results  map[uuid.UUID][]models.OptimizationResult
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		sessions: map[uuid.UUID]*models.Session{},
		turns:    map[uuid.UUID][]models.Conversation{},
		results:  map[uuid.UUID][]models.OptimizationResult{},
	}
}

func (s *memStore) RegisterUser(_ context.Context, username, passwordHash, sessionName string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, repository.ErrConflict
	}
	u := &models.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.users[username] = u
	sessID := uuid.New()
	s.sessions[sessID] = &models.Session{ID: sessID, UserID: u.ID, SessionName: sessionName, IsActive: true}
	return u, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.LastLogin = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) addSession(userID uuid.UUID, name string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &models.Session{ID: uuid.New(), UserID: userID, SessionName: name, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.sessions[sess.ID] = sess
	return sess
}

func (s *memStore) CreateSession(_ context.Context, userID uuid.UUID, name, initialRequirement string) (*models.Session, error) {
	sess := s.addSession(userID, name)
	sess.InitialRequirement = initialRequirement
	return sess, nil
}

func (s *memStore) ListSessions(_ context.Context, userID uuid.UUID) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (s *memStore) GetActiveSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

func (s *memStore) DeactivateSession(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || !sess.IsActive {
		return repository.ErrNotFound
	}
	sess.IsActive = false
	return nil
}

func (s *memStore) RenameSession(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sess.SessionName = name
	return nil
}

func (s *memStore) AddTurn(_ context.Context, sessionID uuid.UUID, userMessage, aiResponse string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn := models.Conversation{
		ID:          uuid.New(),
		SessionID:   sessionID,
		TurnNumber:  len(s.turns[sessionID]) + 1,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		CreatedAt:   time.Now(),
	}
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return &turn, nil
}

func (s *memStore) ListTurns(_ context.Context, sessionID uuid.UUID) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Conversation{}, s.turns[sessionID]...), nil
}

func (s *memStore) RecentUserMessages(_ context.Context, sessionID uuid.UUID, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.UserMessage
	}
	return out, nil
}

func (s *memStore) ClearTurns(_ context.Context, sessionID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.turns[sessionID]))
	delete(s.turns, sessionID)
	return n, nil
}

func (s *memStore) SaveResult(_ context.Context, r models.OptimizationResult) (*models.OptimizationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now().Add(time.Duration(len(s.results[r.SessionID])) * time.Second)
	s.results[r.SessionID] = append(s.results[r.SessionID], r)
	return &r, nil
}

func (s *memStore) ListResults(_ context.Context, sessionID uuid.UUID) ([]models.OptimizationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.OptimizationResult{}, s.results[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fakeOptimizer records calls and returns canned answers.
type fakeOptimizer struct {
	builder *optimizer.ContextBuilder

	result     *optimizer.PipelineResult
	err        error
	gotText    string
	gotHistory optimizer.History
	runCalls   int

	summary        string
	summaryErr     error
	summarizeCalls int
	gotContent     string

	title       string
	titleErr    error
	titleInputs []string
}

func newFakeOptimizer() *fakeOptimizer {
	return &fakeOptimizer{
		builder: optimizer.NewContextBuilder(0, nil),
		result:  &optimizer.PipelineResult{Stage1: "s1", Stage2: "s2", Stage3: "s3"},
		summary: "short summary",
		title:   "Todo app",
	}
}

func (f *fakeOptimizer) RunOptimization(_ context.Context, rawText string, history optimizer.History) (*optimizer.PipelineResult, error) {
	f.runCalls++
	f.gotText = rawText
	f.gotHistory = history
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeOptimizer) SummarizeLongText(_ context.Context, content string) (string, error) {
	f.summarizeCalls++
	f.gotContent = content
	return f.summary, f.summaryErr
}

func (f *fakeOptimizer) SessionTitle(_ context.Context, content string) (string, error) {
	f.titleInputs = append(f.titleInputs, content)
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return f.title, nil
}

func (f *fakeOptimizer) Builder() *optimizer.ContextBuilder {
	return f.builder
}

type memCache map[string]string

func (m memCache) Get(_ context.Context, content string) (string, bool, error) {
	v, ok := m[content]
	return v, ok, nil
}

func (m memCache) Set(_ context.Context, content, summary string) error {
	m[content] = summary
	return nil
}

type countingObserver struct{ hits, misses int }

func (o *countingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits++
		return
	}
	o.misses++
}

type recordingPublisher struct {
	subjects []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

// withUser stands in for middleware.Auth.
func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetUserID(c, id)
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error middleware.APIError `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error.Code
}

func doJSONWithToken(t *testing.T, router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

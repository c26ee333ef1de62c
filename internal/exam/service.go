package exam

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu          sync.RWMutex
	tests       map[string]Test
	questions   map[string]Question
	uploads     map[string]Upload
	submissions map[string]Submission
	users       map[string]User
	codes       func() (string, error)
	last        time.Time
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		tests:       map[string]Test{},
		questions:   map[string]Question{},
		uploads:     map[string]Upload{},
		submissions: map[string]Submission{},
		users:       map[string]User{},
		codes:       NewAccessCode,
	}
}

var _ Store = (*MemoryStore)(nil)

// now must be called with mu held.
func (m *MemoryStore) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

func (m *MemoryStore) CreateTest(_ context.Context, t Test) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = StatusActive
	}
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	err := withFreshCode(m.codes, func(code string) error {
		for _, other := range m.tests {
			if other.AccessCode == code {
				return ErrConflict
			}
		}
		t.AccessCode = code
		return nil
	})
	if err != nil {
		return Test{}, err
	}
	m.tests[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) GetActiveTestByCode(_ context.Context, code string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tests {
		if t.AccessCode == code && t.Status == StatusActive {
			return t, nil
		}
	}
	return Test{}, ErrNotFound
}

func (m *MemoryStore) ListTestsByTutor(_ context.Context, tutorID string) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Test{}
	for _, t := range m.tests {
		if t.TutorID == tutorID && t.Status != StatusDeleted {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateTest(_ context.Context, id string, p TestPatch) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.PassMark != nil {
		t.PassMark = *p.PassMark
	}
	if p.ShuffleAnswers != nil {
		t.ShuffleAnswers = *p.ShuffleAnswers
	}
	if p.ResultText != nil {
		t.ResultText = *p.ResultText
	}
	t.UpdatedAt = m.now()
	m.tests[id] = t
	return t, nil
}

func (m *MemoryStore) AddQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[q.TestID]; !ok {
		return Question{}, ErrNotFound
	}
	q.ID = uuid.NewString()
	q.CreatedAt = m.now()
	q.Options = cloneStrings(q.Options)
	m.questions[q.ID] = q
	return q, nil
}

func (m *MemoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	q.Options = cloneStrings(q.Options)
	return q, nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.TestID == testID {
			q.Options = cloneStrings(q.Options)
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *MemoryStore) CreateUpload(_ context.Context, u Upload) (Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[u.TestID]; !ok {
		return Upload{}, ErrNotFound
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.now()
	u.AnalysisResult, u.AnalyzedAt = nil, nil
	m.uploads[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUpload(_ context.Context, id string) (Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.uploads[id]
	if !ok {
		return Upload{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) CacheAnalysis(_ context.Context, uploadID string, result json.RawMessage) (Upload, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[uploadID]
	if !ok {
		return Upload{}, false, ErrNotFound
	}
	if len(u.AnalysisResult) > 0 {
		return u, false, nil
	}
	u.AnalysisResult = append(json.RawMessage(nil), result...)
	at := m.now()
	u.AnalyzedAt = &at
	m.uploads[uploadID] = u
	return u, true, nil
}

func (m *MemoryStore) CreateSubmission(_ context.Context, s Submission) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[s.TestID]; !ok {
		return Submission{}, ErrNotFound
	}
	s.ID = uuid.NewString()
	s.SubmittedAt = m.now()
	s.Answers = append([]AnswerRecord{}, s.Answers...)
	m.submissions[s.ID] = s
	return s, nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, testID string) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Submission{}
	for _, s := range m.submissions {
		if s.TestID == testID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range m.users {
		if other.Email == u.Email {
			return User{}, ErrConflict
		}
	}
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = RoleTutor
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

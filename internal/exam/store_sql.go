package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	codes  func() (string, error)

	mu   sync.Mutex
	last int64
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, codes: NewAccessCode}
}

// stamp returns a strictly increasing UnixNano so rows created in the same
// tick still sort in insertion order.
func (s *SQLStore) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := time.Now().UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---- tests ----

const testCols = `id,tutor_id,title,description,type,status,pass_mark,shuffle_answers,result_text,access_code,created_at,updated_at`

func scanTest(r scanner) (Test, error) {
	var t Test
	var created, updated int64
	err := r.Scan(&t.ID, &t.TutorID, &t.Title, &t.Description, &t.Type, &t.Status,
		&t.PassMark, &t.ShuffleAnswers, &t.ResultText, &t.AccessCode, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, err
	}
	t.CreatedAt, t.UpdatedAt = fromNanos(created), fromNanos(updated)
	return t, nil
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (Test, error) {
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = StatusActive
	}
	now := s.stamp()
	t.CreatedAt, t.UpdatedAt = fromNanos(now), fromNanos(now)
	err := withFreshCode(s.codes, func(code string) error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO tests (`+testCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			t.ID, t.TutorID, t.Title, t.Description, string(t.Type), string(t.Status),
			t.PassMark, t.ShuffleAnswers, t.ResultText, code, now, now)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err == nil {
			t.AccessCode = code
		}
		return err
	})
	if err != nil {
		return Test{}, fmt.Errorf("insert test: %w", err)
	}
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	return scanTest(s.db.QueryRowContext(ctx, `SELECT `+testCols+` FROM tests WHERE id=$1`, id))
}

func (s *SQLStore) GetActiveTestByCode(ctx context.Context, code string) (Test, error) {
	return scanTest(s.db.QueryRowContext(ctx,
		`SELECT `+testCols+` FROM tests WHERE access_code=$1 AND status=$2`, code, string(StatusActive)))
}

func (s *SQLStore) ListTestsByTutor(ctx context.Context, tutorID string) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testCols+` FROM tests
		WHERE tutor_id=$1 AND status<>$2 ORDER BY created_at DESC`, tutorID, string(StatusDeleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateTest(ctx context.Context, id string, p TestPatch) (Test, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.PassMark != nil {
		add("pass_mark", *p.PassMark)
	}
	if p.ShuffleAnswers != nil {
		add("shuffle_answers", *p.ShuffleAnswers)
	}
	if p.ResultText != nil {
		add("result_text", *p.ResultText)
	}
	add("updated_at", s.stamp())
	args = append(args, id)
	q := fmt.Sprintf("UPDATE tests SET %s WHERE id=$%d", strings.Join(sets, ","), len(args))

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return Test{}, fmt.Errorf("update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Test{}, ErrNotFound
	}
	return s.GetTest(ctx, id)
}

// ---- questions ----

const questionCols = `id,test_id,type,content,options_json,answer,difficulty,created_at`

func scanQuestion(r scanner) (Question, error) {
	var q Question
	var opts sql.NullString
	var created int64
	if err := r.Scan(&q.ID, &q.TestID, &q.Type, &q.Content, &opts, &q.Answer, &q.Difficulty, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	if opts.Valid && opts.String != "" {
		if err := json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
			return Question{}, fmt.Errorf("question %s options: %w", q.ID, err)
		}
	}
	q.CreatedAt = fromNanos(created)
	return q, nil
}

func (s *SQLStore) AddQuestion(ctx context.Context, q Question) (Question, error) {
	q.ID = uuid.NewString()
	now := s.stamp()
	q.CreatedAt = fromNanos(now)
	var opts sql.NullString
	if q.Options != nil {
		buf, err := json.Marshal(q.Options)
		if err != nil {
			return Question{}, err
		}
		opts = sql.NullString{String: string(buf), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		q.ID, q.TestID, string(q.Type), q.Content, opts, q.Answer, string(q.Difficulty), now)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	return scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE test_id=$1 ORDER BY created_at ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- uploads ----

const uploadCols = `id,test_id,file_url,file_key,file_type,mime_type,analysis_result,analyzed_at,created_at`

func scanUpload(r scanner) (Upload, error) {
	var u Upload
	var result sql.NullString
	var analyzed sql.NullInt64
	var created int64
	if err := r.Scan(&u.ID, &u.TestID, &u.FileURL, &u.FileKey, &u.FileType, &u.MimeType,
		&result, &analyzed, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Upload{}, ErrNotFound
		}
		return Upload{}, err
	}
	if result.Valid {
		u.AnalysisResult = json.RawMessage(result.String)
	}
	if analyzed.Valid {
		at := fromNanos(analyzed.Int64)
		u.AnalyzedAt = &at
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (s *SQLStore) CreateUpload(ctx context.Context, u Upload) (Upload, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.stamp()
	u.CreatedAt = fromNanos(now)
	u.AnalysisResult, u.AnalyzedAt = nil, nil
	_, err := s.db.ExecContext(ctx, `INSERT INTO uploads (id,test_id,file_url,file_key,file_type,mime_type,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.TestID, u.FileURL, u.FileKey, string(u.FileType), u.MimeType, now)
	if err != nil {
		return Upload{}, fmt.Errorf("insert upload: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUpload(ctx context.Context, id string) (Upload, error) {
	return scanUpload(s.db.QueryRowContext(ctx, `SELECT `+uploadCols+` FROM uploads WHERE id=$1`, id))
}

func (s *SQLStore) CacheAnalysis(ctx context.Context, uploadID string, result json.RawMessage) (Upload, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET analysis_result=$1, analyzed_at=$2 WHERE id=$3 AND analysis_result IS NULL`,
		string(result), s.stamp(), uploadID)
	if err != nil {
		return Upload{}, false, fmt.Errorf("cache analysis: %w", err)
	}
	n, _ := res.RowsAffected()
	u, err := s.GetUpload(ctx, uploadID)
	if err != nil {
		return Upload{}, false, err
	}
	return u, n > 0, nil
}

// ---- submissions ----

const submissionCols = `id,test_id,learner_id,answers_json,score,passed,submitted_at`

func scanSubmission(r scanner) (Submission, error) {
	var sub Submission
	var answers string
	var at int64
	if err := r.Scan(&sub.ID, &sub.TestID, &sub.LearnerID, &answers, &sub.Score, &sub.Passed, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return Submission{}, fmt.Errorf("submission %s answers: %w", sub.ID, err)
	}
	sub.SubmittedAt = fromNanos(at)
	return sub, nil
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub Submission) (Submission, error) {
	sub.ID = uuid.NewString()
	now := s.stamp()
	sub.SubmittedAt = fromNanos(now)
	if sub.Answers == nil {
		sub.Answers = []AnswerRecord{}
	}
	buf, err := json.Marshal(sub.Answers)
	if err != nil {
		return Submission{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO learner_submissions (`+submissionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sub.ID, sub.TestID, sub.LearnerID, string(buf), sub.Score, sub.Passed, now)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM learner_submissions WHERE id=$1`, id))
}

func (s *SQLStore) ListSubmissions(ctx context.Context, testID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionCols+` FROM learner_submissions
		WHERE test_id=$1 ORDER BY submitted_at DESC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ---- users ----

const userCols = `id,name,email,password_hash,role,created_at`

func scanUser(r scanner) (User, error) {
	var u User
	var created int64
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleTutor
	}
	now := s.stamp()
	u.CreatedAt = fromNanos(now)
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), now)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(email))))
}

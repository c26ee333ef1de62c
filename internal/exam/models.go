package exam

import (
	"encoding/json"
	"time"
)

type TestType string

const (
	TypeTest       TestType = "test"
	TypeAssignment TestType = "assignment"
)

func (t TestType) Valid() bool { return t == TypeTest || t == TypeAssignment }

type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusDeleted Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusDeleted:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "true_false"
	QuestionShort     QuestionType = "short"
	QuestionSelect    QuestionType = "select"
	QuestionFillGap   QuestionType = "fill_gap"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{QuestionMCQ, QuestionTrueFalse, QuestionShort, QuestionSelect, QuestionFillGap}

func (t QuestionType) Valid() bool {
	for _, k := range QuestionTypes {
		if t == k {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

const DefaultPassMark = 50

type Test struct {
	ID             string    `json:"id"`
	TutorID        string    `json:"tutor_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Type           TestType  `json:"type"`
	Status         Status    `json:"status"`
	PassMark       int       `json:"pass_mark"`
	ShuffleAnswers bool      `json:"shuffle_answers"`
	ResultText     string    `json:"result_text"`
	AccessCode     string    `json:"access_code"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TestPatch carries a partial update; nil fields are left untouched.
type TestPatch struct {
	Title          *string
	Description    *string
	Type           *TestType
	Status         *Status
	PassMark       *int
	ShuffleAnswers *bool
	ResultText     *string
}

func (p TestPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Type == nil && p.Status == nil &&
		p.PassMark == nil && p.ShuffleAnswers == nil && p.ResultText == nil
}

// Question is the tutor view. Answer is the canonical key encoded as text:
// an option index for mcq, "true"/"false", a JSON index array for select,
// free text otherwise.
type Question struct {
	ID         string       `json:"id"`
	TestID     string       `json:"test_id"`
	Type       QuestionType `json:"type"`
	Content    string       `json:"content"`
	Options    []string     `json:"options"`
	Answer     string       `json:"answer"`
	Difficulty Difficulty   `json:"difficulty"`
	CreatedAt  time.Time    `json:"created_at"`
}

type FileType string

const (
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
	FileDoc   FileType = "doc"
	FileText  FileType = "text"
)

type UploadState string

const (
	UploadCreated  UploadState = "created"
	UploadAnalyzed UploadState = "analyzed"
)

type Upload struct {
	ID             string          `json:"id"`
	TestID         string          `json:"test_id"`
	FileURL        string          `json:"file_url"`
	FileKey        string          `json:"file_key"`
	FileType       FileType        `json:"file_type"`
	MimeType       string          `json:"mime_type"`
	AnalysisResult json.RawMessage `json:"analysis_result,omitempty"`
	AnalyzedAt     *time.Time      `json:"analyzed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// State is derived from the cached analysis; it never goes back to created.
func (u Upload) State() UploadState {
	if len(u.AnalysisResult) > 0 {
		return UploadAnalyzed
	}
	return UploadCreated
}

type AnswerRecord struct {
	QuestionID    string          `json:"question_id"`
	LearnerAnswer json.RawMessage `json:"learner_answer"`
	Correct       bool            `json:"correct"`
}

// Submission is immutable once stored.
type Submission struct {
	ID          string         `json:"id"`
	TestID      string         `json:"test_id"`
	LearnerID   string         `json:"learner_id"`
	Answers     []AnswerRecord `json:"answers"`
	Score       float64        `json:"score"`
	Passed      bool           `json:"passed"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

type Role string

const (
	RoleTutor Role = "tutor"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

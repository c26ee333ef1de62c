package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

// MalformedOutputError reports model output that does not match the
// expected {"questions":[...]} document. Index is -1 for document-level
// problems.
type MalformedOutputError struct {
	Index  int
	Reason string
}

func (e *MalformedOutputError) Error() string {
	if e.Index < 0 {
		return "malformed model output: " + e.Reason
	}
	return fmt.Sprintf("malformed model output: question %d: %s", e.Index, e.Reason)
}

func malformed(i int, format string, args ...any) error {
	return &MalformedOutputError{Index: i, Reason: fmt.Sprintf(format, args...)}
}

// Generated is a validated question as produced by the model, with its
// answer normalised to the stored text encoding.
type Generated struct {
	Type       exam.QuestionType `json:"type"`
	Content    string            `json:"content"`
	Options    []string          `json:"options"`
	Answer     string            `json:"answer"`
	Difficulty exam.Difficulty   `json:"difficulty"`
}

// Question converts g into a question of testID.
func (g Generated) Question(testID string) exam.Question {
	return exam.Question{
		TestID:     testID,
		Type:       g.Type,
		Content:    g.Content,
		Options:    g.Options,
		Answer:     g.Answer,
		Difficulty: g.Difficulty,
	}
}

type rawDocument struct {
	Questions *[]rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Type       exam.QuestionType `json:"type"`
	Content    string            `json:"content"`
	Options    []string          `json:"options"`
	Answer     json.RawMessage   `json:"answer"`
	Difficulty exam.Difficulty   `json:"difficulty"`
}

// ParseQuestions validates model text against the question schema. The
// text must be exactly one JSON object, optionally inside a code fence.
func ParseQuestions(text string, spec Spec) ([]Generated, error) {
	body := stripFence(text)
	if body == "" {
		return nil, malformed(-1, "empty response")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed(-1, "not a JSON object: %v", err)
	}
	if dec.More() {
		return nil, malformed(-1, "trailing content after JSON object")
	}
	if doc.Questions == nil {
		return nil, malformed(-1, `missing "questions" array`)
	}
	if len(*doc.Questions) == 0 {
		return nil, malformed(-1, "no questions returned")
	}

	out := make([]Generated, 0, len(*doc.Questions))
	for i, rq := range *doc.Questions {
		g, err := validateQuestion(i, rq, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func validateQuestion(i int, rq rawQuestion, spec Spec) (Generated, error) {
	g := Generated{Type: rq.Type, Content: strings.TrimSpace(rq.Content), Difficulty: rq.Difficulty}
	if g.Type == "" {
		g.Type = spec.QuestionType
	}
	if !g.Type.Valid() {
		return Generated{}, malformed(i, "unknown type %q", rq.Type)
	}
	if g.Content == "" {
		return Generated{}, malformed(i, "empty content")
	}
	if g.Difficulty == "" {
		g.Difficulty = spec.Difficulty
	}
	if !g.Difficulty.Valid() {
		return Generated{}, malformed(i, "unknown difficulty %q", rq.Difficulty)
	}
	raw := bytes.TrimSpace(rq.Answer)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Generated{}, malformed(i, "missing answer")
	}

	switch g.Type {
	case exam.QuestionMCQ:
		if len(rq.Options) < 2 {
			return Generated{}, malformed(i, "mcq needs at least 2 options")
		}
		idx, ok := intValue(raw)
		if !ok || idx < 0 || idx >= len(rq.Options) {
			return Generated{}, malformed(i, "mcq answer %s is not an option index", raw)
		}
		g.Options = rq.Options
		g.Answer = strconv.Itoa(idx)

	case exam.QuestionSelect:
		if len(rq.Options) < 2 {
			return Generated{}, malformed(i, "select needs at least 2 options")
		}
		idxs, ok := intList(raw)
		if !ok || len(idxs) == 0 {
			return Generated{}, malformed(i, "select answer %s is not an index array", raw)
		}
		for _, n := range idxs {
			if n < 0 || n >= len(rq.Options) {
				return Generated{}, malformed(i, "select index %d out of range", n)
			}
		}
		enc, _ := json.Marshal(idxs)
		g.Options = rq.Options
		g.Answer = string(enc)

	case exam.QuestionTrueFalse:
		v := strings.ToLower(strings.TrimSpace(textValue(raw)))
		if v != "true" && v != "false" {
			return Generated{}, malformed(i, "true_false answer %s", raw)
		}
		g.Answer = v

	default:
		v := strings.TrimSpace(textValue(raw))
		if v == "" {
			return Generated{}, malformed(i, "empty answer")
		}
		g.Answer = v
	}
	return g, nil
}

func textValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func intValue(raw json.RawMessage) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(textValue(raw)))
	return n, err == nil
}

func intList(raw json.RawMessage) ([]int, bool) {
	var elems []json.RawMessage
	if json.Unmarshal(raw, &elems) != nil {
		// some models encode the array as a string
		var s string
		if json.Unmarshal(raw, &s) != nil || json.Unmarshal([]byte(s), &elems) != nil {
			return nil, false
		}
	}
	out := make([]int, 0, len(elems))
	for _, e := range elems {
		n, ok := intValue(e)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

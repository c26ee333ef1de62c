package learner

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/grading"
	"github.com/Isaacolagoke/Testai/internal/logger"
)

type fixture struct {
	store *exam.MemoryStore
	test  exam.Test
	mcq   exam.Question
	sel   exam.Question
}

func setup(t *testing.T, shuffle bool) fixture {
	t.Helper()
	ctx := context.Background()
	store := exam.NewInMemoryStore()
	tt, err := store.CreateTest(ctx, exam.Test{
		TutorID: "tutor", Title: "Science", Type: exam.TypeTest, PassMark: 60,
		ShuffleAnswers: shuffle, ResultText: "Well done",
	})
	if err != nil {
		t.Fatal(err)
	}
	mcq, err := store.AddQuestion(ctx, exam.Question{
		TestID: tt.ID, Type: exam.QuestionMCQ, Content: "Largest planet?",
		Options: []string{"Mars", "Jupiter", "Venus"}, Answer: "1", Difficulty: exam.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	sel, err := store.AddQuestion(ctx, exam.Question{
		TestID: tt.ID, Type: exam.QuestionSelect, Content: "Gas giants?",
		Options: []string{"Jupiter", "Earth", "Saturn"}, Answer: "[0,2]", Difficulty: exam.DifficultyMedium,
	})
	if err != nil {
		t.Fatal(err)
	}
	return fixture{store: store, test: tt, mcq: mcq, sel: sel}
}

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestDeliver_StripsAnswers(t *testing.T) {
	f := setup(t, false)
	svc := NewService(f.store, logger.Nop())
	got, err := svc.Deliver(context.Background(), f.test.AccessCode)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("questions = %d", len(got.Questions))
	}
	buf, _ := json.Marshal(got)
	var generic struct {
		Questions []map[string]any `json:"questions"`
	}
	if err := json.Unmarshal(buf, &generic); err != nil {
		t.Fatal(err)
	}
	for _, q := range generic.Questions {
		if _, ok := q["answer"]; ok {
			t.Fatalf("answer leaked: %v", q)
		}
		if _, ok := q["option_mapping"]; ok {
			t.Fatalf("mapping present without shuffle: %v", q)
		}
	}
	if got.Questions[0].Options[1] != "Jupiter" {
		t.Fatalf("options reordered: %v", got.Questions[0].Options)
	}
}

func TestDeliver_ShuffleIsPermutation(t *testing.T) {
	f := setup(t, true)
	svc := NewService(f.store, logger.Nop(), WithShuffle(reverse))
	got, err := svc.Deliver(context.Background(), f.test.AccessCode)
	if err != nil {
		t.Fatal(err)
	}
	mcq := got.Questions[0]
	if strings.Join(mcq.Options, ",") != "Venus,Jupiter,Mars" {
		t.Fatalf("options = %v", mcq.Options)
	}
	for pos, orig := range mcq.OptionMapping {
		if mcq.Options[pos] != f.mcq.Options[orig] {
			t.Fatalf("mapping[%d]=%d does not recover %q", pos, orig, mcq.Options[pos])
		}
	}
	// only mcq questions are shuffled
	if got.Questions[1].OptionMapping != nil || got.Questions[1].Options[0] != "Jupiter" {
		t.Fatalf("select question shuffled: %+v", got.Questions[1])
	}
}

func TestDeliver_RandomShuffleKeepsMultiset(t *testing.T) {
	f := setup(t, true)
	svc := NewService(f.store, logger.Nop())
	for i := 0; i < 20; i++ {
		got, err := svc.Deliver(context.Background(), f.test.AccessCode)
		if err != nil {
			t.Fatal(err)
		}
		opts := append([]string(nil), got.Questions[0].Options...)
		want := append([]string(nil), f.mcq.Options...)
		sort.Strings(opts)
		sort.Strings(want)
		if strings.Join(opts, ",") != strings.Join(want, ",") {
			t.Fatalf("options mutated: %v", got.Questions[0].Options)
		}
	}
}

func TestDeliver_InactiveOrUnknown(t *testing.T) {
	f := setup(t, false)
	svc := NewService(f.store, logger.Nop())
	if _, err := exam.SetStatus(context.Background(), f.store, f.test.ID, exam.StatusPaused); err != nil {
		t.Fatal(err)
	}
	for _, code := range []string{f.test.AccessCode, "ZZZZZZ"} {
		_, err := svc.Deliver(context.Background(), code)
		if e := apierr.As(err); e.Kind != apierr.KindNotFound || e.Msgs[0] != "Test not found or not available" {
			t.Fatalf("code %s: %v", code, err)
		}
	}
}

func TestSubmit(t *testing.T) {
	cases := []struct {
		name    string
		answers []grading.Answer
		score   float64
		passed  bool
	}{
		{"correct mcq", []grading.Answer{{QuestionID: "mcq", Value: json.RawMessage(`"1"`)}}, 100, true},
		{"wrong mcq", []grading.Answer{{QuestionID: "mcq", Value: json.RawMessage(`"0"`)}}, 0, false},
		{"select reordered", []grading.Answer{{QuestionID: "sel", Value: json.RawMessage(`[2,0]`)}}, 100, true},
		{"select superset", []grading.Answer{{QuestionID: "sel", Value: json.RawMessage(`[0,1,2]`)}}, 0, false},
		{"nothing submitted", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t, false)
			svc := NewService(f.store, logger.Nop())
			for i := range tc.answers {
				switch tc.answers[i].QuestionID {
				case "mcq":
					tc.answers[i].QuestionID = f.mcq.ID
				case "sel":
					tc.answers[i].QuestionID = f.sel.ID
				}
			}
			rc, err := svc.Submit(context.Background(), SubmitInput{
				TestID: f.test.ID, LearnerName: "Ada", LearnerEmail: "ada@example.com", Answers: tc.answers,
			})
			if err != nil {
				t.Fatal(err)
			}
			if rc.Score != tc.score || rc.Passed != tc.passed || rc.TotalQuestions != len(tc.answers) {
				t.Fatalf("receipt = %+v", rc)
			}
			sub, err := f.store.GetSubmission(context.Background(), rc.SubmissionID)
			if err != nil {
				t.Fatal(err)
			}
			if sub.LearnerID != "Ada <ada@example.com>" || sub.Score != tc.score {
				t.Fatalf("stored = %+v", sub)
			}
		})
	}
}

func TestSubmit_InactiveTest(t *testing.T) {
	f := setup(t, false)
	svc := NewService(f.store, logger.Nop())
	if _, err := exam.SetStatus(context.Background(), f.store, f.test.ID, exam.StatusDeleted); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Submit(context.Background(), SubmitInput{TestID: f.test.ID, LearnerName: "A", LearnerEmail: "a@b.co"})
	if apierr.As(err).Kind != apierr.KindNotFound {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestResult(t *testing.T) {
	f := setup(t, false)
	svc := NewService(f.store, logger.Nop())
	ctx := context.Background()
	rc, err := svc.Submit(ctx, SubmitInput{
		TestID: f.test.ID, LearnerName: "Ada Lovelace", LearnerEmail: "ada@example.com",
		Answers: []grading.Answer{
			{QuestionID: f.mcq.ID, Value: json.RawMessage(`"1"`)},
			{QuestionID: f.sel.ID, Value: json.RawMessage(`[0]`)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.DeleteQuestion(ctx, f.sel.ID); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Result(ctx, rc.SubmissionID)
	if err != nil {
		t.Fatal(err)
	}
	if res.LearnerName != "Ada Lovelace" || res.LearnerEmail != "ada@example.com" {
		t.Fatalf("identity = %q %q", res.LearnerName, res.LearnerEmail)
	}
	if res.Score != 50 || res.PassMark != 60 || res.Passed || res.ResultText != "Well done" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Answers) != 2 {
		t.Fatalf("answers = %d", len(res.Answers))
	}
	first := res.Answers[0]
	if !first.Correct || first.QuestionContent != "Largest planet?" || first.CorrectAnswer != "1" || len(first.Options) != 3 {
		t.Fatalf("first = %+v", first)
	}
	if second := res.Answers[1]; second.QuestionContent != "" || second.Correct {
		t.Fatalf("deleted question enriched: %+v", second)
	}

	_, err = svc.Result(ctx, "00000000-0000-4000-8000-000000000000")
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Msgs[0] != "Submission not found" {
		t.Fatalf("missing submission: %v", err)
	}
}

func TestParseLearnerID(t *testing.T) {
	cases := []struct{ in, name, email string }{
		{"Ada Lovelace <ada@example.com>", "Ada Lovelace", "ada@example.com"},
		{"Bob", "Bob", ""},
		{"  Eve <eve@x.io>", "Eve", "eve@x.io"},
		{"<only@mail.com>", "", "only@mail.com"},
	}
	for _, tc := range cases {
		name, email := ParseLearnerID(tc.in)
		if name != tc.name || email != tc.email {
			t.Fatalf("ParseLearnerID(%q) = %q, %q", tc.in, name, email)
		}
	}
	if n, e := ParseLearnerID(LearnerID("Ann", "ann@a.com")); n != "Ann" || e != "ann@a.com" {
		t.Fatalf("round trip = %q %q", n, e)
	}
}

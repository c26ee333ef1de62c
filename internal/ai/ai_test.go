package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/logger"
)

var mcqSpec = Spec{NumQuestions: 2, QuestionType: exam.QuestionMCQ, Difficulty: exam.DifficultyEasy}

func TestParseQuestions_Valid(t *testing.T) {
	text := "```json\n" + `{"questions":[
		{"type":"mcq","content":"Largest planet?","options":["Mars","Jupiter","Venus","Earth"],"answer":1,"difficulty":"easy"},
		{"type":"mcq","content":"Red planet?","options":["Mars","Jupiter"],"answer":"0","explanation":"extra fields are ignored"}
	]}` + "\n```"
	qs, err := ParseQuestions(text, mcqSpec)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0].Answer != "1" || qs[1].Answer != "0" {
		t.Fatalf("qs = %+v", qs)
	}
	if qs[1].Difficulty != exam.DifficultyEasy {
		t.Fatalf("difficulty default not applied: %+v", qs[1])
	}
	q := qs[0].Question("test-1")
	if q.TestID != "test-1" || len(q.Options) != 4 {
		t.Fatalf("question = %+v", q)
	}
}

func TestParseQuestions_Normalises(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		item string
		want string
	}{
		{"select array", Spec{QuestionType: exam.QuestionSelect}, `{"type":"select","content":"c","options":["a","b","c"],"answer":[2,0],"difficulty":"hard"}`, "[2,0]"},
		{"select encoded", Spec{QuestionType: exam.QuestionSelect}, `{"type":"select","content":"c","options":["a","b","c"],"answer":"[1]","difficulty":"hard"}`, "[1]"},
		{"tf bool", Spec{QuestionType: exam.QuestionTrueFalse}, `{"type":"true_false","content":"c","answer":true,"difficulty":"easy"}`, "true"},
		{"tf caps", Spec{QuestionType: exam.QuestionTrueFalse}, `{"type":"true_false","content":"c","answer":"False","difficulty":"easy"}`, "false"},
		{"short", Spec{QuestionType: exam.QuestionShort}, `{"type":"short","content":"c","answer":"  Paris ","difficulty":"medium"}`, "Paris"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qs, err := ParseQuestions(`{"questions":[`+tc.item+`]}`, tc.spec)
			if err != nil {
				t.Fatal(err)
			}
			if qs[0].Answer != tc.want {
				t.Fatalf("answer = %q, want %q", qs[0].Answer, tc.want)
			}
		})
	}
}

func TestParseQuestions_Rejects(t *testing.T) {
	cases := map[string]string{
		"prose":             "Here are your questions!",
		"empty":             "   ",
		"trailing":          `{"questions":[]} and more`,
		"no questions key":  `{"items":[]}`,
		"zero questions":    `{"questions":[]}`,
		"mcq out of range":  `{"questions":[{"type":"mcq","content":"c","options":["a","b"],"answer":2}]}`,
		"mcq no options":    `{"questions":[{"type":"mcq","content":"c","answer":0}]}`,
		"select bad index":  `{"questions":[{"type":"select","content":"c","options":["a","b"],"answer":[0,5]}]}`,
		"select not array":  `{"questions":[{"type":"select","content":"c","options":["a","b"],"answer":"a"}]}`,
		"tf maybe":          `{"questions":[{"type":"true_false","content":"c","answer":"maybe"}]}`,
		"unknown type":      `{"questions":[{"type":"essay","content":"c","answer":"x"}]}`,
		"missing answer":    `{"questions":[{"type":"short","content":"c"}]}`,
		"empty content":     `{"questions":[{"type":"short","content":" ","answer":"x"}]}`,
		"bad difficulty":    `{"questions":[{"type":"short","content":"c","answer":"x","difficulty":"extreme"}]}`,
		"questions not arr": `{"questions":"none"}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuestions(text, mcqSpec)
			var me *MalformedOutputError
			if !errors.As(err, &me) {
				t.Fatalf("want MalformedOutputError, got %v", err)
			}
		})
	}
}

func TestSpec(t *testing.T) {
	s := Spec{}.WithDefaults()
	if s.NumQuestions != 5 || s.QuestionType != exam.QuestionMCQ || s.Difficulty != exam.DifficultyMedium {
		t.Fatalf("defaults = %+v", s)
	}
	for _, bad := range []Spec{
		{NumQuestions: 31, QuestionType: exam.QuestionMCQ, Difficulty: exam.DifficultyEasy},
		{NumQuestions: -1, QuestionType: exam.QuestionMCQ, Difficulty: exam.DifficultyEasy},
		{NumQuestions: 3, QuestionType: "essay", Difficulty: exam.DifficultyEasy},
	} {
		if bad.Validate() == nil {
			t.Fatalf("accepted %+v", bad)
		}
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(Spec{NumQuestions: 7, QuestionType: exam.QuestionFillGap, Difficulty: exam.DifficultyHard})
	for _, want := range []string{"generate 7 high-quality hard difficulty fill-in-the-gap questions", "[...]", `"type": "fill_gap"`} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

type captured struct {
	path string
	key  string
	body generateRequest
}

func geminiServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}}},
	})
	return string(b)
}

func newClient(t *testing.T, baseURL string) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(logger.Nop(), Config{APIKey: "k-123", BaseURL: baseURL, Model: "text-model", VisionModel: "vision-model"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerate_Text(t *testing.T) {
	var got captured
	reply := candidate(`{"questions":[{"type":"mcq","content":"Q","options":["a","b","c","d"],"answer":3,"difficulty":"easy"}]}`)
	srv := geminiServer(t, http.StatusOK, reply, &got)

	qs, err := newClient(t, srv.URL).Generate(context.Background(), Input{Text: "The solar system"}, Spec{NumQuestions: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 || qs[0].Answer != "3" {
		t.Fatalf("qs = %+v", qs)
	}
	if got.path != "/v1beta/models/text-model:generateContent" || got.key != "k-123" {
		t.Fatalf("path=%s key=%s", got.path, got.key)
	}
	gc := got.body.GenerationConfig
	if gc.Temperature != 0.7 || gc.MaxOutputTokens != 8192 || gc.ResponseMimeType != "application/json" {
		t.Fatalf("generation config = %+v", gc)
	}
	if parts := got.body.Contents[0].Parts; len(parts) != 1 || !strings.Contains(parts[0].Text, "Content to analyze: The solar system") {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestGenerate_ImageUsesVisionModel(t *testing.T) {
	var got captured
	reply := candidate(`{"questions":[{"type":"true_false","content":"Q","answer":"true","difficulty":"medium"}]}`)
	srv := geminiServer(t, http.StatusOK, reply, &got)

	img := []byte{0x89, 'P', 'N', 'G'}
	_, err := newClient(t, srv.URL).Generate(context.Background(),
		Input{Image: img, MimeType: "image/png"}, Spec{NumQuestions: 1, QuestionType: exam.QuestionTrueFalse})
	if err != nil {
		t.Fatal(err)
	}
	if got.path != "/v1beta/models/vision-model:generateContent" {
		t.Fatalf("path = %s", got.path)
	}
	parts := got.body.Contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString(img) {
		t.Fatal("image not base64 encoded")
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		var got captured
		srv := geminiServer(t, http.StatusTooManyRequests, `{"error":"quota"}`, &got)
		_, err := newClient(t, srv.URL).Generate(context.Background(), Input{Text: "x"}, Spec{})
		var he *HTTPError
		if !errors.As(err, &he) || he.StatusCode != 429 {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("not json", func(t *testing.T) {
		var got captured
		srv := geminiServer(t, http.StatusOK, candidate("Sorry, I cannot help."), &got)
		_, err := newClient(t, srv.URL).Generate(context.Background(), Input{Text: "x"}, Spec{})
		var me *MalformedOutputError
		if !errors.As(err, &me) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("blocked", func(t *testing.T) {
		var got captured
		srv := geminiServer(t, http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, &got)
		_, err := newClient(t, srv.URL).Generate(context.Background(), Input{Text: "x"}, Spec{})
		var me *MalformedOutputError
		if !errors.As(err, &me) || !strings.Contains(me.Reason, "SAFETY") {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("bad spec", func(t *testing.T) {
		c := newClient(t, "http://127.0.0.1:1")
		if _, err := c.Generate(context.Background(), Input{Text: "x"}, Spec{NumQuestions: 99}); err == nil {
			t.Fatal("expected spec error")
		}
	})
	if _, err := NewGeminiClient(logger.Nop(), Config{}); err == nil {
		t.Fatal("missing key accepted")
	}
}

package validate

import (
	"encoding/json"
	"testing"
)

type item struct {
	ID     string          `json:"question_id" validate:"required,uuid"`
	Answer json.RawMessage `json:"answer" validate:"present"`
}

type payload struct {
	Title    string `json:"title" validate:"required"`
	PassMark *int   `json:"pass_mark" validate:"omitempty,min=0,max=100"`
	Items    []item `json:"answers" validate:"dive"`
}

var msgs = Messages{
	"title":               "Title is required",
	"pass_mark":           "Pass mark must be between 0 and 100",
	"answers.question_id": "Valid question ID is required",
	"answers.answer":      "Answer is required",
}

func TestStruct_Valid(t *testing.T) {
	pm := 60
	p := payload{
		Title:    "Quiz",
		PassMark: &pm,
		Items:    []item{{ID: "7f9c24e8-3b12-4fef-91e0-6f0f3a0c9f11", Answer: json.RawMessage(`"1"`)}},
	}
	if err := Struct(p, msgs); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestStruct_Messages(t *testing.T) {
	pm := 101
	p := payload{
		PassMark: &pm,
		Items: []item{
			{ID: "nope", Answer: json.RawMessage(`null`)},
			{ID: "also-nope", Answer: json.RawMessage(`""`)},
		},
	}
	err := Struct(p, msgs)
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := map[string]bool{
		"Title is required":                   true,
		"Pass mark must be between 0 and 100": true,
		"Valid question ID is required":       true,
		"Answer is required":                  true,
	}
	if len(err.Msgs) != len(want) {
		t.Fatalf("msgs = %v", err.Msgs)
	}
	for _, m := range err.Msgs {
		if !want[m] {
			t.Fatalf("unexpected msg %q", m)
		}
	}
}

func TestStruct_FallbackMessage(t *testing.T) {
	err := Struct(payload{}, nil)
	if err == nil || err.Msgs[0] != "title is invalid" {
		t.Fatalf("got %v", err)
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("7f9c24e8-3b12-4fef-91e0-6f0f3a0c9f11") {
		t.Fatal("valid uuid rejected")
	}
	if IsUUID("ABC123") || IsUUID("") {
		t.Fatal("invalid uuid accepted")
	}
}

package ai

import (
	"fmt"
	"strings"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

var typeDescriptions = map[exam.QuestionType]string{
	exam.QuestionMCQ:       "multiple-choice",
	exam.QuestionTrueFalse: "true/false",
	exam.QuestionShort:     "short answer",
	exam.QuestionSelect:    "multiple-select",
	exam.QuestionFillGap:   "fill-in-the-gap",
}

var typeRules = map[exam.QuestionType]string{
	exam.QuestionMCQ: `For multiple choice questions:
- Provide exactly 4 options
- Make sure only one option is correct
- For the answer, provide the index (0, 1, 2, or 3) as a number`,
	exam.QuestionTrueFalse: `For true/false questions:
- No options are needed
- For the answer, provide "true" or "false"`,
	exam.QuestionShort: `For short answer questions:
- No options are needed
- For the answer, provide a concise model answer`,
	exam.QuestionSelect: `For select questions (multiple correct answers):
- Provide 4-6 options
- Multiple options can be correct
- For the answer, provide an array of indices of all correct options`,
	exam.QuestionFillGap: `For fill-in-the-gap questions:
- In the question content, use [...] to denote where the gap should be
- For the answer, provide the text that should fill the gap`,
}

// Prompt builds the instruction sent ahead of the material.
func Prompt(spec Spec) string {
	var b strings.Builder
	desc := typeDescriptions[spec.QuestionType]
	if desc == "" {
		desc = string(spec.QuestionType)
	}
	fmt.Fprintf(&b, `You are an expert educational content creator.
Analyze the provided content and generate %d high-quality %s difficulty %s questions.

Return your response as a JSON object with the following format:
{
  "questions": [
    {
      "type": "%s",
      "content": "Question text here",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "answer": "The correct answer or index",
      "difficulty": "%s"
    }
  ]
}

`, spec.NumQuestions, spec.Difficulty, desc, spec.QuestionType, spec.Difficulty)

	if rules, ok := typeRules[spec.QuestionType]; ok {
		b.WriteString(rules)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, `IMPORTANT: Make sure your questions:
1. Are clear, unambiguous, and directly related to the content
2. Cover different aspects of the content (not just the same topic)
3. Are appropriately challenging for %s difficulty
4. Have correct answers that are factual and accurate
5. For MCQs, have plausible but clearly incorrect distractors

Return ONLY THE JSON OBJECT with no additional text before or after.`, spec.Difficulty)
	return b.String()
}

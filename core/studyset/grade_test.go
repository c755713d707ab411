package studyset

import "testing"

func TestGradeAttempt(t *testing.T) {
	questions := []Question{
		{
			ID:            "q1",
			Type:          QuestionMultipleChoice,
			Content:       "2 + 2 = ?",
			CorrectAnswer: "4",
			Options: []QuestionOption{
				{ID: "o3", Text: "5", Order: 3},
				{ID: "o1", Text: "3", Order: 1},
				{ID: "o2", Text: "4", Order: 2},
			},
		},
		{ID: "q2", Type: QuestionTrueFalse, Content: "the sky is blue", CorrectAnswer: "true"},
		{ID: "q3", Type: QuestionShortAnswer, Content: "capital of France", CorrectAnswer: "Paris"},
		{ID: "q4", Type: QuestionFlashcard, Content: "bonjour", CorrectAnswer: "hello"},
	}

	tests := []struct {
		name        string
		answers     map[string]string
		wantCorrect int
		wantMastery float64
	}{
		{
			name: "all correct",
			answers: map[string]string{
				"q1": "1", // options sorted by order: 3, 4, 5
				"q2": "true",
				"q3": "paris",
				"q4": "HELLO",
			},
			wantCorrect: 4,
			wantMastery: 100,
		},
		{
			name: "half correct",
			answers: map[string]string{
				"q1": "0",
				"q2": "True",
				"q3": " Paris ",
				"q4": "bye",
			},
			wantCorrect: 2,
			wantMastery: 50,
		},
		{
			name:        "unanswered questions count as wrong",
			answers:     map[string]string{"q2": "true"},
			wantCorrect: 1,
			wantMastery: 25,
		},
		{
			name: "unknown question ids are ignored",
			answers: map[string]string{
				"q2":      "true",
				"ghost-q": "whatever",
			},
			wantCorrect: 1,
			wantMastery: 25,
		},
		{
			name:        "empty sheet",
			answers:     map[string]string{},
			wantCorrect: 0,
			wantMastery: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gradeAttempt(questions, tt.answers)
			if res.CorrectAnswers != tt.wantCorrect {
				t.Errorf("CorrectAnswers = %d, want %d", res.CorrectAnswers, tt.wantCorrect)
			}
			if res.MasteryPercentage != tt.wantMastery {
				t.Errorf("MasteryPercentage = %v, want %v", res.MasteryPercentage, tt.wantMastery)
			}
			if res.TotalQuestions != len(questions) {
				t.Errorf("TotalQuestions = %d, want %d", res.TotalQuestions, len(questions))
			}
		})
	}
}

func TestGradeAttemptEmptySet(t *testing.T) {
	res := gradeAttempt(nil, map[string]string{"q1": "whatever"})
	if res.MasteryPercentage != 0 || res.TotalQuestions != 0 || res.CorrectAnswers != 0 {
		t.Errorf("empty set should grade to zero, got %+v", res)
	}
}

func TestIsCorrectMultipleChoice(t *testing.T) {
	q := Question{
		Type:          QuestionMultipleChoice,
		CorrectAnswer: "4",
		Options: []QuestionOption{
			{Text: "3", Order: 1},
			{Text: "4", Order: 2},
			{Text: "5", Order: 3},
		},
	}
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{name: "correct index", answer: "1", want: true},
		{name: "wrong index", answer: "0", want: false},
		{name: "out of range", answer: "7", want: false},
		{name: "negative index", answer: "-1", want: false},
		{name: "not a number", answer: "four", want: false},
		{name: "padded index", answer: " 1 ", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCorrect(q, tt.answer); got != tt.want {
				t.Errorf("isCorrect(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestIsCorrectTrueFalse(t *testing.T) {
	q := Question{Type: QuestionTrueFalse, CorrectAnswer: "False"}
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{name: "false matches", answer: "false", want: true},
		{name: "anything not true reads as false", answer: "nope", want: true},
		{name: "true does not match", answer: "true", want: false},
		{name: "case-insensitive true", answer: "TRUE", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCorrect(q, tt.answer); got != tt.want {
				t.Errorf("isCorrect(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

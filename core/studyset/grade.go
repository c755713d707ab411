package studyset

import (
	"sort"
	"strconv"
	"strings"
)

// gradeAttempt scores a submitted attempt against the set's questions.
// Unanswered questions count as wrong; answers to unknown question ids are
// ignored. Mastery is correct/total*100, or 0 for an empty set.
func gradeAttempt(questions []Question, answers map[string]string) AttemptResult {
	res := AttemptResult{TotalQuestions: len(questions)}
	for _, q := range questions {
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		if isCorrect(q, ans) {
			res.CorrectAnswers++
		}
	}
	if res.TotalQuestions > 0 {
		res.MasteryPercentage = float64(res.CorrectAnswers) / float64(res.TotalQuestions) * 100
	}
	return res
}

func isCorrect(q Question, answer string) bool {
	switch q.Type {
	case QuestionMultipleChoice:
		// The answer is the index of the chosen option, counted over the
		// options in display order.
		idx, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			return false
		}
		opts := make([]QuestionOption, len(q.Options))
		copy(opts, q.Options)
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Order < opts[j].Order })
		if idx < 0 || idx >= len(opts) {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(opts[idx].Text), strings.TrimSpace(q.CorrectAnswer))
	case QuestionTrueFalse:
		// Anything other than "true" counts as false, on both sides.
		got := strings.ToLower(strings.TrimSpace(answer)) == "true"
		want := strings.ToLower(strings.TrimSpace(q.CorrectAnswer)) == "true"
		return got == want
	default:
		return strings.ToLower(strings.TrimSpace(answer)) == strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
	}
}

package studyset

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kitabu/studyhall/core"
)

var (
	setTypeTag  = "settype"
	setTypeText = "invalid study set type"

	setLevelTag  = "setlevel"
	setLevelText = "invalid difficulty level"

	questionTypeTag  = "questiontype"
	questionTypeText = "invalid question type"
)

var (
	allSetTypes      = []string{TypeFlashcards, TypeQuiz, TypeProblemSet}
	allLevels        = []string{"Beginner", "Easy", "Medium", "Hard", "Advanced"}
	allQuestionTypes = []string{
		QuestionFlashcard, QuestionMultipleChoice, QuestionTrueFalse,
		QuestionShortAnswer, QuestionProblem,
	}
)

// InitValidators registers this package's custom validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(setTypeTag, oneOfValidation(allSetTypes))
	core.RegisterCustomTranslation(validate, translator, setTypeTag, setTypeText)

	_ = validate.RegisterValidation(setLevelTag, oneOfValidation(allLevels))
	core.RegisterCustomTranslation(validate, translator, setLevelTag, setLevelText)

	_ = validate.RegisterValidation(questionTypeTag, oneOfValidation(allQuestionTypes))
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)
}

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if a == val {
				return true
			}
		}
		return false
	}
}

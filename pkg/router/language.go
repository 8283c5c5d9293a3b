package router

import (
	"regexp"

	"github.com/pemistahl/lingua-go"
)

// Accepted languages: Catalan plus its two close neighbours. The detector is
// built over a wider set so English or Italian questions are recognized as
// such instead of being forced into the nearest accepted language.
var detectorLanguages = []lingua.Language{
	lingua.Catalan,
	lingua.Spanish,
	lingua.French,
	lingua.English,
	lingua.Italian,
	lingua.Portuguese,
	lingua.German,
}

var acceptedLanguages = map[lingua.Language]bool{
	lingua.Catalan: true,
	lingua.Spanish: true,
	lingua.French:  true,
}

// LanguageFilter wraps a lingua detector. Building the detector loads the
// language models, so one instance is created at startup and shared.
type LanguageFilter struct {
	detector lingua.LanguageDetector
}

func NewLanguageFilter() *LanguageFilter {
	return &LanguageFilter{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			Build(),
	}
}

// Accepts reports whether the question is written in an accepted language.
// Undetectable text passes; short ambiguous questions should not be refused
// on language grounds.
func (f *LanguageFilter) Accepts(question string) bool {
	lang, ok := f.detector.DetectLanguageOf(question)
	if !ok {
		return true
	}
	return acceptedLanguages[lang]
}

var wordRe = regexp.MustCompile(`\pL+`)

// maxQuestionWords bounds how long a question may be before it is refused.
const maxQuestionWords = 25

// TooLong reports whether the question exceeds the word cap.
func TooLong(question string) bool {
	return len(wordRe.FindAllString(question, -1)) > maxQuestionWords
}

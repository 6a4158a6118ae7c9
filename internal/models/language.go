package models

// Language selects the natural language of user-facing output, in
// particular the AI report and its heuristic fallback.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// ParseLanguage maps a user-supplied code to a Language, defaulting to
// English for anything unrecognized.
func ParseLanguage(code string) Language {
	if code == string(Spanish) {
		return Spanish
	}
	return English
}

// Label returns a human readable name for prompts and logging.
func (l Language) Label() string {
	if l == Spanish {
		return "Spanish"
	}
	return "English"
}

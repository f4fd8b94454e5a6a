package types

// Question is a multiple-choice quiz question from the question bank.
type Question struct {
	// ID is the unique identifier of the question.
	ID int `json:"id" db:"id"`

	// Question is the text shown to the candidate.
	Question string `json:"question" db:"question"`

	// Subject groups questions by topic (e.g. "BDD", "Docker").
	Subject string `json:"subject" db:"subject"`

	// Use is the test type the question belongs to
	// (e.g. "Test de positionnement", "Test de validation").
	Use string `json:"use" db:"use_case"`

	// Correct lists the letters of the correct responses, e.g. "A" or "B,C".
	Correct string `json:"correct" db:"correct"`

	// Responses holds the candidate answers A to D. Empty strings are
	// unused slots.
	Responses [4]string `json:"responses" db:"responses"`

	// Remark is an optional explanation.
	Remark string `json:"remark,omitempty" db:"remark"`
}

// QuizCatalog lists the distinct values available for quiz filtering.
type QuizCatalog struct {
	Uses     []string `json:"uses"`
	Subjects []string `json:"subjects"`
}

package models

// QuizItem is one multiple-choice question
type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// QuizOptionCount is the fixed number of options each quiz item carries
const QuizOptionCount = 4

// Valid reports whether the item has exactly four options and an in-range answer
func (q QuizItem) Valid() bool {
	if q.Question == "" || len(q.Options) != QuizOptionCount {
		return false
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// Flashcard is a single front/back study card
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

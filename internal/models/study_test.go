package models

import "testing"

func TestQuizItem_Valid(t *testing.T) {
	t.Parallel()

	four := []string{"a", "b", "c", "d"}
	tests := []struct {
		name  string
		item  QuizItem
		valid bool
	}{
		{"valid first", QuizItem{Question: "q", Options: four, CorrectIndex: 0}, true},
		{"valid last", QuizItem{Question: "q", Options: four, CorrectIndex: 3}, true},
		{"index past end", QuizItem{Question: "q", Options: four, CorrectIndex: 5}, false},
		{"index equals length", QuizItem{Question: "q", Options: four, CorrectIndex: 4}, false},
		{"negative index", QuizItem{Question: "q", Options: four, CorrectIndex: -1}, false},
		{"three options", QuizItem{Question: "q", Options: four[:3], CorrectIndex: 0}, false},
		{"empty question", QuizItem{Options: four}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.item.Valid(); got != tt.valid {
				t.Errorf("Expected Valid()=%v, got %v", tt.valid, got)
			}
		})
	}
}

package domain

// Slide is one slide of a generated presentation.
type Slide struct {
	Title        string   `json:"title"`
	Content      []string `json:"content"`
	SpeakerNotes string   `json:"speaker_notes"`
	ImagePrompt  string   `json:"image_prompt,omitempty"`
}

// Presentation is the artifact stored for PRESENTATION jobs.
type Presentation struct {
	Slides []Slide `json:"slides"`
}

// Flashcard is one generated study card.
type Flashcard struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// FlashcardSet is the artifact stored for FLASHCARDS jobs.
type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// MCQOption is one answer choice.
type MCQOption struct {
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// MCQ is one multiple-choice question.
type MCQ struct {
	QuestionText string      `json:"question_text"`
	Options      []MCQOption `json:"options"`
	Explanation  string      `json:"explanation"`
	Difficulty   string      `json:"difficulty"`
	BloomLevel   string      `json:"bloom_level"`
	Topic        string      `json:"topic"`
}

// CorrectCount returns the number of options marked correct.
func (q MCQ) CorrectCount() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

// MCQSet is the artifact stored for QUIZ jobs.
type MCQSet struct {
	MCQs []MCQ `json:"mcqs"`
}

// PodcastScript is a narration script produced before speech synthesis.
type PodcastScript struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/phrazzld/edumind-api/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Template names, one per prompt file.
const (
	promptPresentation = "presentation.tmpl"
	promptFlashcards   = "flashcards.tmpl"
	promptQuiz         = "quiz.tmpl"
	promptPodcast      = "podcast.tmpl"
	promptChat         = "chat.tmpl"
)

var lengthInstructions = map[string]string{
	"quick":         "Create a 2-3 minute podcast script focusing on key takeaways and essential points.",
	"medium":        "Create a 4-6 minute podcast script balancing key concepts with engaging explanations.",
	"comprehensive": "Create a 7-10 minute podcast script with detailed explanations and comprehensive coverage.",
}

var focusInstructions = map[string]string{
	"key_concepts":  "Focus primarily on the most important concepts, definitions and core ideas.",
	"summary":       "Provide a comprehensive summary hitting all major points concisely.",
	"full_document": "Cover the full document content in an engaging, structured manner.",
}

var promptFuncs = template.FuncMap{
	"lengthInstruction": func(length string) string {
		if s, ok := lengthInstructions[length]; ok {
			return s
		}
		return lengthInstructions["medium"]
	},
	"focusInstruction": func(focus string) string {
		if s, ok := focusInstructions[focus]; ok {
			return s
		}
		return focusInstructions["full_document"]
	},
	"speaker": func(s domain.Sender) string {
		if s == domain.SenderAI {
			return "Assistant"
		}
		return "User"
	},
}

// promptData is passed to every template; each one reads only the fields it needs.
type promptData struct {
	Title    string
	Text     string
	Options  any
	History  []domain.ChatMessage
	Question string
}

func loadPrompts() (*template.Template, error) {
	tmpl, err := template.New("prompts").Funcs(promptFuncs).ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Package mentor models the AI mentor conversation and generated lessons.
package mentor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// MaxMessageLength caps a single user message.
const MaxMessageLength = 4000

// Role is the author of a chat message.
type Role string

const (
	RoleUser   Role = "user"
	RoleMentor Role = "mentor"
)

// Message is one stored chat message.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage validates content and stamps a new message.
func NewMessage(userID string, role Role, content string, now time.Time) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.ErrEmptyMessage
	}
	if len(content) > MaxMessageLength {
		return nil, shared.NewDomainError("mentor", "Validate", shared.ErrValueOutOfRange,
			fmt.Sprintf("message exceeds %d bytes", MaxMessageLength))
	}
	return &Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// Repository stores chat history.
type Repository interface {
	Append(ctx context.Context, m *Message) error
	// Recent returns the latest limit messages in chronological order.
	Recent(ctx context.Context, userID string, limit int) ([]Message, error)
}

// Completer is the language model behind the mentor.
type Completer interface {
	// Chat returns the mentor reply to history under the given system prompt.
	Chat(ctx context.Context, system string, history []Message) (string, error)
	// GenerateJSON returns a JSON document constrained by schema.
	GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) ([]byte, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMPTS
// ══════════════════════════════════════════════════════════════════════════════

// PromptContext is the learner state injected into mentor prompts.
type PromptContext struct {
	DisplayName string
	TrackTitle  string
	CurrentDay  int
	TotalDays   int
	StreakDays  int
	Level       int
	Tasks       []PromptTask
}

// PromptTask is a task summary for prompts.
type PromptTask struct {
	Title     string
	Kind      string
	Completed bool
}

const systemPromptTemplate = `You are CareerWise, a friendly and practical career mentor.
The learner {{.DisplayName}} is on day {{.CurrentDay}} of {{.TotalDays}} of the "{{.TrackTitle}}" track.
They are level {{.Level}} with a {{.StreakDays}}-day streak.
{{- if .Tasks}}
Today's tasks:
{{- range .Tasks}}
- [{{if .Completed}}x{{else}} {{end}}] {{.Title}} ({{.Kind}})
{{- end}}
{{- end}}
Keep answers short, concrete and encouraging. Refer to today's tasks when relevant.`

const lessonPromptTemplate = `Write a short lesson for day {{.Day}} of the "{{.TrackTitle}}" career track.
Task: {{.TaskTitle}}
Details: {{.TaskDescription}}
Return JSON with fields: title, summary, steps (array of {title, detail}), resources (array of {title, url}).`

var (
	systemTmpl = template.Must(template.New("system").Parse(systemPromptTemplate))
	lessonTmpl = template.Must(template.New("lesson").Parse(lessonPromptTemplate))
)

// RenderSystemPrompt renders the chat system prompt.
func RenderSystemPrompt(pc PromptContext) (string, error) {
	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, pc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LessonRequest describes the task a lesson is generated for.
type LessonRequest struct {
	TrackTitle      string
	Day             int
	TaskTitle       string
	TaskDescription string
}

// RenderLessonPrompt renders the lesson generation prompt.
func RenderLessonPrompt(lr LessonRequest) (string, error) {
	var buf bytes.Buffer
	if err := lessonTmpl.Execute(&buf, lr); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS
// ══════════════════════════════════════════════════════════════════════════════

// Lesson is a structured, model-generated explanation of a task.
type Lesson struct {
	Title     string       `json:"title"`
	Summary   string       `json:"summary"`
	Steps     []LessonStep `json:"steps"`
	Resources []Resource   `json:"resources"`
}

// LessonStep is one step of a lesson.
type LessonStep struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Resource is an external reference.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// LessonSchema constrains model output and is checked on receipt.
var LessonSchema = json.RawMessage(`{
  "type": "object",
  "required": ["title", "summary", "steps"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "summary": {"type": "string", "minLength": 1},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "detail"],
        "properties": {
          "title": {"type": "string"},
          "detail": {"type": "string"}
        }
      }
    },
    "resources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "url"],
        "properties": {
          "title": {"type": "string"},
          "url": {"type": "string"}
        }
      }
    }
  }
}`)

// DecodeLesson unmarshals a lesson document.
func DecodeLesson(data []byte) (*Lesson, error) {
	var l Lesson
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, shared.ErrLessonInvalid.Wrap(err)
	}
	if l.Resources == nil {
		l.Resources = []Resource{}
	}
	return &l, nil
}

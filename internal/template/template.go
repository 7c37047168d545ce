// Package template provides built-in conversation starters.
package template

import "fmt"

// Template is a predefined conversation starter.
type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Category    string `json:"category"`
}

var builtins = []Template{
	{
		ID:          "explain-code",
		Title:       "Explain Code",
		Description: "Walk through a piece of code step by step",
		Prompt:      "Explain the following code step by step, noting anything surprising:\n\n",
		Category:    "coding",
	},
	{
		ID:          "debug-help",
		Title:       "Debug Help",
		Description: "Track down a bug from an error message and context",
		Prompt:      "I'm hitting this error. Help me find the cause and a fix:\n\n",
		Category:    "coding",
	},
	{
		ID:          "summarize",
		Title:       "Summarize Text",
		Description: "Condense a long passage into key points",
		Prompt:      "Summarize the following into a short list of key points:\n\n",
		Category:    "writing",
	},
	{
		ID:          "improve-writing",
		Title:       "Improve Writing",
		Description: "Tighten up a draft without changing its meaning",
		Prompt:      "Rewrite this to be clearer and more concise, keeping the meaning intact:\n\n",
		Category:    "writing",
	},
	{
		ID:          "learn-topic",
		Title:       "Learn a Topic",
		Description: "Get a structured introduction to something new",
		Prompt:      "Teach me the basics of the following topic, building from first principles: ",
		Category:    "learning",
	},
	{
		ID:          "brainstorm",
		Title:       "Brainstorm Ideas",
		Description: "Generate a list of ideas around a theme",
		Prompt:      "Brainstorm ten distinct ideas for: ",
		Category:    "productivity",
	},
}

// All returns every built-in template.
func All() []Template {
	out := make([]Template, len(builtins))
	copy(out, builtins)
	return out
}

// ByID returns the template with the given id.
func ByID(id string) (Template, error) {
	for _, t := range builtins {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("template: %s: not found", id)
}

// ByCategory returns the templates in a category, in definition order.
func ByCategory(category string) []Template {
	var out []Template
	for _, t := range builtins {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range builtins {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}

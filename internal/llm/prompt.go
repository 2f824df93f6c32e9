package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/spherical/book-translator/internal/domain"
)

// Placeholders substituted into the instruction template.
const (
	contentPlaceholder = "{{content}}"
	contextPlaceholder = "{{context}}"
)

const defaultPromptTemplate = `You are a professional literary translator. Translate the following book page into English. Preserve the author's tone, register, and paragraph structure. Translate the content faithfully and completely; do not summarize, annotate, or add commentary. If the page is an image, first read all of its text, then translate it. Return ONLY the translated text.

{{context}}

### TEXT TO BE TRANSLATED

{{content}}`

// PromptTemplate is an opaque instruction template with {{content}} and
// {{context}} placeholders. The template body is external configuration;
// the client only performs substitution.
type PromptTemplate struct {
	text string
}

// NewPromptTemplate wraps a raw template string.
func NewPromptTemplate(text string) *PromptTemplate {
	return &PromptTemplate{text: text}
}

// LoadPromptTemplate reads a template from path, or returns the built-in
// default when path is empty.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return NewPromptTemplate(defaultPromptTemplate), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("reading prompt template %s", path), err)
	}
	return NewPromptTemplate(string(data)), nil
}

// Render substitutes the page content and the context window into the
// template. Templates without placeholders get the sections appended, so a
// plain instruction file still produces a complete prompt.
func (t *PromptTemplate) Render(content string, contextWindow []string) string {
	out := t.text

	contextSection := ""
	if len(contextWindow) > 0 {
		contextSection = "### PREVIOUS TRANSLATION (continue in the same style)\n\n" +
			strings.Join(contextWindow, "\n\n---\n\n")
	}

	if strings.Contains(out, contextPlaceholder) {
		out = strings.ReplaceAll(out, contextPlaceholder, contextSection)
	} else if contextSection != "" {
		out += "\n\n" + contextSection
	}

	if strings.Contains(out, contentPlaceholder) {
		out = strings.ReplaceAll(out, contentPlaceholder, content)
	} else {
		out += "\n\n### TEXT TO BE TRANSLATED\n\n" + content
	}

	return strings.TrimSpace(out)
}

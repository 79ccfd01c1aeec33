package issue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Issue struct {
	id          uuid.UUID
	title       string
	htmlContent string
	textContent string
	publishedAt time.Time
}

// New creates an issue with a fresh id, published now.
func New(title, htmlContent, textContent string) Issue {
	return Issue{
		id:          uuid.New(),
		title:       strings.TrimSpace(title),
		htmlContent: htmlContent,
		textContent: textContent,
		publishedAt: time.Now().UTC(),
	}
}

func Hydrate(id uuid.UUID, title, htmlContent, textContent string, publishedAt time.Time) Issue {
	return Issue{
		id:          id,
		title:       title,
		htmlContent: htmlContent,
		textContent: textContent,
		publishedAt: publishedAt,
	}
}

func (i Issue) ID() uuid.UUID          { return i.id }
func (i Issue) Title() string          { return i.title }
func (i Issue) HTMLContent() string    { return i.htmlContent }
func (i Issue) TextContent() string    { return i.textContent }
func (i Issue) PublishedAt() time.Time { return i.publishedAt }
func (i Issue) IsZero() bool           { return i.id == uuid.Nil }

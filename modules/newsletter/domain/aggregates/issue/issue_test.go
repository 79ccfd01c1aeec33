package issue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	iss := New("  Weekly digest ", "<p>hi</p>", "hi")
	require.False(t, iss.IsZero())
	require.Equal(t, "Weekly digest", iss.Title())
	require.Equal(t, "<p>hi</p>", iss.HTMLContent())
	require.Equal(t, "hi", iss.TextContent())
	require.False(t, iss.PublishedAt().IsZero())
	require.NotEqual(t, iss.ID(), New("a", "b", "c").ID())
}

func TestCreateDTO_Ok(t *testing.T) {
	dto := &CreateDTO{Title: " Weekly ", HTMLContent: "<p>x</p>", TextContent: "x"}
	errs, ok := dto.Ok()
	require.True(t, ok)
	require.Empty(t, errs)
	require.Equal(t, "Weekly", dto.Title)

	dto = &CreateDTO{Title: "  ", HTMLContent: "", TextContent: "x"}
	errs, ok = dto.Ok()
	require.False(t, ok)
	require.Equal(t, "required", errs["title"])
	require.Equal(t, "required", errs["html_content"])
	require.NotContains(t, errs, "text_content")

	dto = &CreateDTO{Title: strings.Repeat("t", 257), HTMLContent: "h", TextContent: "x"}
	errs, ok = dto.Ok()
	require.False(t, ok)
	require.Equal(t, "max", errs["title"])
}

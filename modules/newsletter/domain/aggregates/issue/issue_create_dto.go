package issue

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/newsletter/pkg/constants"
)

type CreateDTO struct {
	Title       string `form:"title" json:"title" validate:"required,max=256"`
	HTMLContent string `form:"html_content" json:"html_content" validate:"required"`
	TextContent string `form:"text_content" json:"text_content" validate:"required"`
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
}

// Ok validates the dto and returns field errors keyed by form field name.
func (d *CreateDTO) Ok() (map[string]string, bool) {
	d.Normalize()

	errs := constants.Validate.Struct(d)
	if errs == nil {
		return map[string]string{}, true
	}

	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(errs, &verrs) {
		out["_"] = errs.Error()
		return out, false
	}
	for _, fe := range verrs {
		out[formField(fe.Field())] = fe.Tag()
	}
	return out, false
}

func formField(field string) string {
	switch field {
	case "Title":
		return "title"
	case "HTMLContent":
		return "html_content"
	case "TextContent":
		return "text_content"
	default:
		return strings.ToLower(field)
	}
}

func (d *CreateDTO) ToEntity() Issue {
	return New(d.Title, d.HTMLContent, d.TextContent)
}

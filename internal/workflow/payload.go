package workflow

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/database"
)

// Payload is an article submitted for analysis.
type Payload struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Content     string        `json:"content" validate:"required"`
	URL         string        `json:"url" validate:"required,http_url"`
	URLToImage  string        `json:"urlToImage" validate:"omitempty,url"`
	PublishedAt string        `json:"publishedAt" validate:"required"`
	Source      PayloadSource `json:"source"`
	Author      string        `json:"author"`
}

// PayloadSource is the publisher of a submitted article.
type PayloadSource struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"omitempty,url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (p *Payload) trim() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Content = strings.TrimSpace(p.Content)
	p.URL = strings.TrimSpace(p.URL)
	p.URLToImage = strings.TrimSpace(p.URLToImage)
	p.PublishedAt = strings.TrimSpace(p.PublishedAt)
	p.Source.Name = strings.TrimSpace(p.Source.Name)
	p.Source.URL = strings.TrimSpace(p.Source.URL)
	p.Author = strings.TrimSpace(p.Author)
}

// Validate checks required fields and formats. The first failing field is
// reported as a ValidationError named by its JSON path.
func (p *Payload) Validate() error {
	p.trim()
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return apperr.Validation("", "invalid payload: %v", err)
		}
		fe := fieldErrs[0]
		return apperr.Validation(fieldPath(fe.Namespace()), "%s", ruleMessage(fe.Tag()))
	}
	if _, err := p.publishedTime(); err != nil {
		return apperr.Validation("publishedAt", "must be a valid date or timestamp")
	}
	return nil
}

// fieldPath drops the struct name from a validator namespace
// ("Payload.source.name" becomes "source.name").
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}

func ruleMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "url", "http_url":
		return "must be a valid absolute URL"
	default:
		return "failed " + tag + " validation"
	}
}

func (p *Payload) publishedTime() (time.Time, error) {
	t, err := dateparse.ParseIn(p.PublishedAt, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (p *Payload) newArticle(publishedAt time.Time) database.NewArticle {
	return database.NewArticle{
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		URL:         p.URL,
		URLToImage:  p.URLToImage,
		PublishedAt: publishedAt,
		Source:      database.Source{Name: p.Source.Name, URL: p.Source.URL},
		Author:      p.Author,
	}
}

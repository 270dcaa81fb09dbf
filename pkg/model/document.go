package model

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and snapshot format of date answers.
const DateLayout = "2006-01-02"

// Document is one filled instance of a form. Documents embedded as table rows
// reference the row form of the owning table question.
type Document struct {
	ID      string    `json:"id"`
	Form    *Form     `json:"-"`
	Answers []*Answer `json:"answers,omitempty"`
}

// FormSlug returns the slug of the document's form, or "" when unset.
func (d *Document) FormSlug() string {
	if d == nil || d.Form == nil {
		return ""
	}
	return d.Form.Slug
}

// Answer returns the answer stored for the question slug.
func (d *Document) Answer(slug string) (*Answer, bool) {
	if d == nil {
		return nil, false
	}
	for _, a := range d.Answers {
		if a != nil && a.Question != nil && a.Question.Slug == slug {
			return a, true
		}
	}
	return nil, false
}

// File references an uploaded file by name.
type File struct {
	Name string `json:"name" yaml:"name"`
}

// AnswerKind identifies which member of the Answer union is populated.
type AnswerKind int

const (
	AnswerKindEmpty AnswerKind = iota
	AnswerKindValue
	AnswerKindFile
	AnswerKindDate
	AnswerKindDocuments
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerKindValue:
		return "value"
	case AnswerKindFile:
		return "file"
	case AnswerKindDate:
		return "date"
	case AnswerKindDocuments:
		return "documents"
	default:
		return "empty"
	}
}

var errAnswerUnion = errors.New("model: answer holds more than one of value, file, date, documents")

// Answer pairs a question with the value given for it in one document. At
// most one of Value, File, Date and Documents is populated.
type Answer struct {
	Question  *Question   `json:"-"`
	Value     any         `json:"value,omitempty"`
	File      *File       `json:"file,omitempty"`
	Date      *time.Time  `json:"date,omitempty"`
	Documents []*Document `json:"documents,omitempty"`
}

// Kind reports the populated union member. Check rejects answers with more
// than one member set; Kind reports the first in declaration order.
func (a *Answer) Kind() AnswerKind {
	switch {
	case a == nil:
		return AnswerKindEmpty
	case a.Value != nil:
		return AnswerKindValue
	case a.File != nil:
		return AnswerKindFile
	case a.Date != nil:
		return AnswerKindDate
	case len(a.Documents) > 0:
		return AnswerKindDocuments
	default:
		return AnswerKindEmpty
	}
}

// Check verifies the union invariant.
func (a *Answer) Check() error {
	if a == nil {
		return nil
	}
	set := 0
	if a.Value != nil {
		set++
	}
	if a.File != nil {
		set++
	}
	if a.Date != nil {
		set++
	}
	if len(a.Documents) > 0 {
		set++
	}
	if set > 1 {
		if a.Question != nil {
			return fmt.Errorf("%w (question %q)", errAnswerUnion, a.Question.Slug)
		}
		return errAnswerUnion
	}
	return nil
}

// QuestionSlug returns the slug of the answered question.
func (a *Answer) QuestionSlug() string {
	if a == nil || a.Question == nil {
		return ""
	}
	return a.Question.Slug
}

// DynamicOption records the label a data source returned for a dynamic choice
// value in a given document.
type DynamicOption struct {
	DocumentID     string    `json:"documentId" bson:"document_id"`
	Question       string    `json:"question" bson:"question"`
	Slug           string    `json:"slug" bson:"slug"`
	Label          string    `json:"label" bson:"label"`
	CreatedByUser  string    `json:"createdByUser,omitempty" bson:"created_by_user,omitempty"`
	CreatedByGroup string    `json:"createdByGroup,omitempty" bson:"created_by_group,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
}

package formdef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formval/pkg/model"
)

// ErrUnknownForm is returned when a document references a form that is not
// part of the set.
var ErrUnknownForm = errors.New("formdef: unknown form")

// DocumentInput is the wire shape of a submitted document. Answers maps
// question slugs to values; table answers are lists of answer mappings, one
// per row.
type DocumentInput struct {
	ID      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Form    string         `json:"form" yaml:"form"`
	Answers map[string]any `json:"answers" yaml:"answers"`
}

// ParseDocument decodes a document payload, trying JSON first and YAML
// second. JSON numbers keep their integer or float shape.
func ParseDocument(data []byte) (DocumentInput, error) {
	var in DocumentInput
	if len(bytes.TrimSpace(data)) == 0 {
		return DocumentInput{}, errors.New("formdef: document payload is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&in); err == nil {
		return in, nil
	}

	in = DocumentInput{}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return DocumentInput{}, fmt.Errorf("formdef: parse document: invalid JSON or YAML: %w", err)
	}
	return in, nil
}

// DecodeDocument parses data and builds the document against the set.
func (s *Set) DecodeDocument(data []byte) (*model.Document, error) {
	in, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return s.BuildDocument(in)
}

// BuildDocument converts a document input into a model document. A missing
// id is replaced with a random UUID; table rows receive ids derived from
// their parent.
func (s *Set) BuildDocument(in DocumentInput) (*model.Document, error) {
	form, ok := s.Form(strings.TrimSpace(in.Form))
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownForm, in.Form)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return buildDocument(form, id, in.Answers)
}

func buildDocument(form *model.Form, id string, answers map[string]any) (*model.Document, error) {
	doc := &model.Document{ID: id, Form: form}

	for slug := range answers {
		q, ok := form.FindQuestion(slug)
		if !ok {
			return nil, fmt.Errorf("formdef: form %q has no question %q", form.Slug, slug)
		}
		if q.Type == model.QuestionTypeForm || q.Type == model.QuestionTypeStatic {
			return nil, fmt.Errorf("formdef: question %q of type %s cannot be answered", slug, q.Type)
		}
	}

	for _, q := range form.AllQuestions() {
		raw, ok := answers[q.Slug]
		if !ok || raw == nil {
			continue
		}
		answer, err := buildAnswer(q, id, raw)
		if err != nil {
			return nil, err
		}
		doc.Answers = append(doc.Answers, answer)
	}
	return doc, nil
}

func buildAnswer(q *model.Question, docID string, raw any) (*model.Answer, error) {
	answer := &model.Answer{Question: q}

	switch q.Type {
	case model.QuestionTypeDate:
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("formdef: question %q expects a date string, got %T", q.Slug, raw)
		}
		day, err := time.Parse(model.DateLayout, strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("formdef: question %q: %w", q.Slug, err)
		}
		answer.Date = &day
	case model.QuestionTypeFile:
		file, err := decodeFile(q, raw)
		if err != nil {
			return nil, err
		}
		answer.File = file
	case model.QuestionTypeTable:
		rows, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("formdef: table question %q expects a list of rows, got %T", q.Slug, raw)
		}
		for idx, item := range rows {
			values, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("formdef: table question %q row %d must be a mapping, got %T", q.Slug, idx, item)
			}
			row, err := buildDocument(q.RowForm, fmt.Sprintf("%s.%s.%d", docID, q.Slug, idx), values)
			if err != nil {
				return nil, err
			}
			answer.Documents = append(answer.Documents, row)
		}
	case model.QuestionTypeFloat:
		value := model.NormalizeValue(raw)
		if n, ok := value.(int64); ok {
			value = float64(n)
		}
		answer.Value = value
	default:
		answer.Value = model.NormalizeValue(raw)
	}
	return answer, nil
}

func decodeFile(q *model.Question, raw any) (*model.File, error) {
	switch v := raw.(type) {
	case string:
		return &model.File{Name: v}, nil
	case map[string]any:
		name, ok := v["name"].(string)
		if !ok {
			return nil, fmt.Errorf("formdef: file question %q expects a name", q.Slug)
		}
		return &model.File{Name: name}, nil
	default:
		return nil, fmt.Errorf("formdef: file question %q expects a name or {name}, got %T", q.Slug, raw)
	}
}

// EncodeDocument converts a model document back into its wire shape.
func EncodeDocument(doc *model.Document) DocumentInput {
	return DocumentInput{ID: doc.ID, Form: doc.FormSlug(), Answers: encodeAnswers(doc)}
}

func encodeAnswers(doc *model.Document) map[string]any {
	out := make(map[string]any, len(doc.Answers))
	for _, answer := range doc.Answers {
		if answer == nil || answer.Question == nil {
			continue
		}
		switch {
		case answer.Date != nil:
			out[answer.Question.Slug] = answer.Date.Format(model.DateLayout)
		case answer.File != nil:
			out[answer.Question.Slug] = answer.File.Name
		case answer.Question.Type == model.QuestionTypeTable:
			rows := make([]any, 0, len(answer.Documents))
			for _, row := range answer.Documents {
				rows = append(rows, encodeAnswers(row))
			}
			out[answer.Question.Slug] = rows
		default:
			out[answer.Question.Slug] = answer.Value
		}
	}
	return out
}

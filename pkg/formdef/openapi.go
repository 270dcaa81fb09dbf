package formdef

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formval/pkg/model"
)

// ErrOperationNotFound is returned when the OpenAPI document has no operation
// with the requested id.
var ErrOperationNotFound = errors.New("formdef: operation not found")

// FromOpenAPI converts the JSON request body schema of an OpenAPI operation
// into form definitions. The root form is named after the operation; nested
// objects become sub-forms and arrays of objects become tables with row forms.
// Question slugs are prefixed with their parent path to stay unique.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return File{}, fmt.Errorf("formdef: load openapi document: %w", err)
	}

	op := findOperation(spec, operationID)
	if op == nil {
		return File{}, fmt.Errorf("%w %q", ErrOperationNotFound, operationID)
	}
	schema := requestSchema(op.RequestBody)
	if schema == nil {
		return File{}, fmt.Errorf("formdef: operation %q has no request body schema", operationID)
	}

	conv := &openAPIConverter{}
	rootSlug := slugify(operationID)
	if err := conv.objectForm(rootSlug, "", firstNonEmpty(op.Summary, operationID), op.Description, schema); err != nil {
		return File{}, err
	}
	return File{Forms: conv.forms}, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	paths := spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, op := range []*openapi3.Operation{item.Post, item.Put, item.Patch, item.Get, item.Delete} {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type openAPIConverter struct {
	forms []FormDef
}

func (c *openAPIConverter) objectForm(formSlug, prefix, name, description string, schema *openapi3.Schema) error {
	if schema == nil || !schemaIs(schema, openapi3.TypeObject) && len(schema.Properties) == 0 {
		return fmt.Errorf("formdef: form %q requires an object schema", formSlug)
	}

	required := make(map[string]struct{}, len(schema.Required))
	for _, prop := range schema.Required {
		required[prop] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for prop := range schema.Properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	// Reserve the form's position before nested forms are appended.
	idx := len(c.forms)
	c.forms = append(c.forms, FormDef{Slug: formSlug, Name: name, Description: description})

	var questions []QuestionDef
	for _, prop := range names {
		ref := schema.Properties[prop]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		slug := slugify(prefix + prop)
		q, err := c.question(slug, prop, ref.Value)
		if err != nil {
			return err
		}
		if _, ok := required[prop]; !ok {
			q.IsRequired = "false"
		}
		questions = append(questions, q)
	}
	c.forms[idx].Questions = questions
	return nil
}

func (c *openAPIConverter) question(slug, prop string, schema *openapi3.Schema) (QuestionDef, error) {
	q := QuestionDef{Slug: slug, Label: firstNonEmpty(schema.Title, prop)}

	switch {
	case schemaIs(schema, openapi3.TypeString):
		switch {
		case len(schema.Enum) > 0:
			q.Type = string(model.QuestionTypeChoice)
			q.Options = enumOptions(schema.Enum)
		case schema.Format == "date":
			q.Type = string(model.QuestionTypeDate)
		case schema.Format == "binary":
			q.Type = string(model.QuestionTypeFile)
		default:
			q.Type = string(model.QuestionTypeText)
			if schema.MaxLength != nil {
				maxLength := int(*schema.MaxLength)
				q.MaxLength = &maxLength
			}
			if schema.Format == "email" {
				q.FormatValidators = []string{"email"}
			}
		}
	case schemaIs(schema, openapi3.TypeInteger):
		q.Type = string(model.QuestionTypeInteger)
		q.MinValue, q.MaxValue = schema.Min, schema.Max
	case schemaIs(schema, openapi3.TypeNumber):
		q.Type = string(model.QuestionTypeFloat)
		q.MinValue, q.MaxValue = schema.Min, schema.Max
	case schemaIs(schema, openapi3.TypeBoolean):
		q.Type = string(model.QuestionTypeChoice)
		q.Options = []model.Option{{Slug: "true", Label: "Yes"}, {Slug: "false", Label: "No"}}
	case schemaIs(schema, openapi3.TypeArray):
		items := (*openapi3.Schema)(nil)
		if schema.Items != nil {
			items = schema.Items.Value
		}
		switch {
		case items != nil && len(items.Enum) > 0:
			q.Type = string(model.QuestionTypeMultipleChoice)
			q.Options = enumOptions(items.Enum)
		case items != nil && (schemaIs(items, openapi3.TypeObject) || len(items.Properties) > 0):
			q.Type = string(model.QuestionTypeTable)
			q.RowForm = slug + "-row"
			if err := c.objectForm(q.RowForm, slug+"-", q.Label, items.Description, items); err != nil {
				return QuestionDef{}, err
			}
		default:
			return QuestionDef{}, fmt.Errorf("formdef: property %q: arrays need enum items or object items", prop)
		}
	case schemaIs(schema, openapi3.TypeObject) || len(schema.Properties) > 0:
		q.Type = string(model.QuestionTypeForm)
		q.SubForm = slug + "-form"
		if err := c.objectForm(q.SubForm, slug+"-", q.Label, schema.Description, schema); err != nil {
			return QuestionDef{}, err
		}
	default:
		return QuestionDef{}, fmt.Errorf("formdef: property %q has an unsupported schema type", prop)
	}
	return q, nil
}

func schemaIs(schema *openapi3.Schema, typ string) bool {
	return schema != nil && schema.Type != nil && schema.Type.Is(typ)
}

func enumOptions(values []any) []model.Option {
	out := make([]model.Option, 0, len(values))
	for _, value := range values {
		slug := fmt.Sprint(value)
		out = append(out, model.Option{Slug: slug, Label: slug})
	}
	return out
}

func slugify(value string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

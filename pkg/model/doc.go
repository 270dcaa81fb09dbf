// Package model defines the runtime form structures validated by
// pkg/validation. Forms are ordered sequences of questions; form-typed
// questions embed a sub-form and table-typed questions collect rows, each row
// being a child Document of the question's row form. Documents own their
// answers and answers optionally own child documents, so every structure here
// is a tree. Question types form a closed set (see QuestionTypes) and the type
// decides which question attributes are meaningful.
package model

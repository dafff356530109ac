// Package ingest turns the three input sources (pasted text, .txt files,
// recipe URLs) into uniform raw inputs for the pipeline.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Source identifies where an input came from.
type Source string

const (
	SourcePasted Source = "pasted"
	SourceFile   Source = "file"
	SourceURL    Source = "url"
)

// RawInput is one recipe text queued for transformation.
type RawInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// Error reports a rejected or unreadable input.
type Error struct {
	Source  Source
	Subject string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("cannot ingest %s input %q: %s", e.Source, e.Subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// FromText wraps pasted text into an input. The text passes through
// unchanged.
func FromText(name, text string) (*RawInput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Source: SourcePasted, Subject: name, Reason: "text is empty"}
	}
	if name == "" {
		name = "Pasted recipe"
	}
	return &RawInput{
		ID:     uuid.NewString(),
		Name:   name,
		Source: SourcePasted,
		Text:   text,
	}, nil
}

// FromFile reads a recipe text file. Only .txt is supported; richer
// formats must be converted before ingestion.
func FromFile(path string) (*RawInput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" {
		return nil, &Error{Source: SourceFile, Subject: path, Reason: fmt.Sprintf("unsupported file type %q, only .txt is accepted", ext)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Source: SourceFile, Subject: path, Reason: "read failed", Err: err}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, &Error{Source: SourceFile, Subject: path, Reason: "file is empty"}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &RawInput{
		ID:     uuid.NewString(),
		Name:   name,
		Source: SourceFile,
		Text:   text,
	}, nil
}

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

var ErrValidation = errors.New("validation error")

type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Provisional reports whether the task carries a client-side temporary id.
func (t Task) Provisional() bool {
	return t.ID < 0
}

type TaskCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply merges the non-nil fields of u into t.
func (u TaskUpdate) Apply(t Task) Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		d := *u.Description
		t.Description = &d
	}
	return t
}

type FilterStatus string

const (
	FilterAll       FilterStatus = "all"
	FilterPending   FilterStatus = "pending"
	FilterCompleted FilterStatus = "completed"
)

func ParseFilter(s string) (FilterStatus, error) {
	switch f := FilterStatus(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("%w: status must be one of all, pending, completed", ErrValidation)
}

type SortOption string

const (
	SortCreated SortOption = "created"
	SortUpdated SortOption = "updated"
	SortTitle   SortOption = "title"
)

func ParseSort(s string) (SortOption, error) {
	switch o := SortOption(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortCreated, nil
	case SortCreated, SortUpdated, SortTitle:
		return o, nil
	}
	return "", fmt.Errorf("%w: sort must be one of created, title, updated", ErrValidation)
}

// Normalize trims the title and checks the create payload.
func (c TaskCreate) Normalize() (TaskCreate, error) {
	title, err := checkTitle(c.Title)
	if err != nil {
		return c, err
	}
	c.Title = title
	if err := checkDescription(c.Description); err != nil {
		return c, err
	}
	return c, nil
}

// Normalize trims the title and checks the update payload. At least one
// field must be set.
func (u TaskUpdate) Normalize() (TaskUpdate, error) {
	if u.Title == nil && u.Description == nil {
		return u, fmt.Errorf("%w: at least one field (title or description) must be provided", ErrValidation)
	}
	if u.Title != nil {
		title, err := checkTitle(*u.Title)
		if err != nil {
			return u, err
		}
		u.Title = &title
	}
	if err := checkDescription(u.Description); err != nil {
		return u, err
	}
	return u, nil
}

func checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLen)
	}
	return title, nil
}

func checkDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLen)
	}
	return nil
}

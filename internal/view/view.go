// Package view holds the pure projections computed over a cached task list.
// Nothing here keeps state; every call copies its input.
package view

import (
	"slices"
	"strings"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

type Counts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

func Filter(tasks []model.Task, f model.FilterStatus) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		switch f {
		case model.FilterPending:
			if t.Completed {
				continue
			}
		case model.FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Sort returns a sorted copy. Equal keys keep their input order.
func Sort(tasks []model.Task, s model.SortOption) []model.Task {
	out := slices.Clone(tasks)
	if out == nil {
		out = []model.Task{}
	}
	slices.SortStableFunc(out, compareFunc(s))
	return out
}

func compareFunc(s model.SortOption) func(a, b model.Task) int {
	switch s {
	case model.SortTitle:
		return func(a, b model.Task) int { return strings.Compare(a.Title, b.Title) }
	case model.SortUpdated:
		return func(a, b model.Task) int { return b.UpdatedAt.Compare(a.UpdatedAt) }
	default:
		return func(a, b model.Task) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
}

func Apply(tasks []model.Task, f model.FilterStatus, s model.SortOption) []model.Task {
	return Sort(Filter(tasks, f), s)
}

func Count(tasks []model.Task) Counts {
	c := Counts{All: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		} else {
			c.Pending++
		}
	}
	return c
}

package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

func sampleTasks() []model.Task {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []model.Task{
		{ID: 1, Title: "banana", Completed: false, CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour)},
		{ID: 2, Title: "apple", Completed: true, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: 3, Title: "cherry", Completed: false, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
		{ID: 4, Title: "apple", Completed: false, CreatedAt: base.Add(time.Hour), UpdatedAt: base},
	}
}

func ids(tasks []model.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter model.FilterStatus
		want   []int64
	}{
		{name: "all", filter: model.FilterAll, want: []int64{1, 2, 3, 4}},
		{name: "pending", filter: model.FilterPending, want: []int64{1, 3, 4}},
		{name: "completed", filter: model.FilterCompleted, want: []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := sampleTasks()
			once := Filter(tasks, tt.filter)
			assert.Equal(t, tt.want, ids(once))
			assert.Equal(t, once, Filter(once, tt.filter), "filter must be idempotent")
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		sort model.SortOption
		want []int64
	}{
		{name: "created desc, ties keep input order", sort: model.SortCreated, want: []int64{3, 2, 4, 1}},
		{name: "updated desc", sort: model.SortUpdated, want: []int64{1, 3, 2, 4}},
		{name: "title, ties keep input order", sort: model.SortTitle, want: []int64{2, 4, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := sampleTasks()
			got := Sort(tasks, tt.sort)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, []int64{1, 2, 3, 4}, ids(tasks), "input must not be reordered")
		})
	}
}

func TestSort_Empty(t *testing.T) {
	assert.Empty(t, Sort(nil, model.SortTitle))
	assert.NotNil(t, Sort(nil, model.SortTitle))
}

func TestApply(t *testing.T) {
	got := Apply(sampleTasks(), model.FilterPending, model.SortTitle)
	assert.Equal(t, []int64{4, 1, 3}, ids(got))
}

func TestCount(t *testing.T) {
	assert.Equal(t, Counts{All: 4, Pending: 3, Completed: 1}, Count(sampleTasks()))
	assert.Equal(t, Counts{}, Count(nil))
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

func newListCmd(a *app) *cobra.Command {
	var status, sortBy string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			f, err := model.ParseFilter(status)
			if err != nil {
				return err
			}
			s, err := model.ParseSort(sortBy)
			if err != nil {
				return err
			}

			tasks, err := a.cache.Tasks(cmd.Context(), userID, f, s)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "filter: all, pending or completed")
	cmd.Flags().StringVar(&sortBy, "sort", "created", "sort: created, updated or title")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			t, err := a.cache.Task(cmd.Context(), userID, id)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			data := model.TaskCreate{Title: args[0]}
			if cmd.Flags().Changed("description") {
				data.Description = &description
			}

			t, err := a.cache.CreateTask(cmd.Context(), userID, data)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var data model.TaskUpdate
			if cmd.Flags().Changed("title") {
				data.Title = &title
			}
			if cmd.Flags().Changed("description") {
				data.Description = &description
			}

			t, err := a.cache.UpdateTask(cmd.Context(), userID, id, data)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			t, err := a.cache.ToggleComplete(cmd.Context(), userID, id)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.cache.DeleteTask(cmd.Context(), userID, id)
		},
	}
}

func newCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show task counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			if _, err := a.cache.Tasks(cmd.Context(), userID, model.FilterAll, model.SortCreated); err != nil {
				return err
			}
			c := a.cache.Counts(userID)
			fmt.Fprintf(cmd.OutOrStdout(), "all: %d\npending: %d\ncompleted: %d\n", c.All, c.Pending, c.Completed)
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the task service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", h.Status)
			if h.Database != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "database: %s\n", h.Database)
			}
			return nil
		},
	}
}

func printTasks(w io.Writer, tasks []model.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tUPDATED")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, checkbox(t.Completed), t.Title, t.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printTask(w io.Writer, t model.Task) {
	fmt.Fprintf(w, "#%d %s %s\n", t.ID, checkbox(t.Completed), t.Title)
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(w, "  %s\n", *t.Description)
	}
	fmt.Fprintf(w, "  created %s, updated %s\n",
		t.CreatedAt.Local().Format(time.DateTime), t.UpdatedAt.Local().Format(time.DateTime))
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

func newNewCmd(opts *rootOptions) *cobra.Command {
	var copyCode bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a task with the next free code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.manager.CreateTask(cmd.Context())
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code=%s status=%s\n", task.Code, task.Status)

			if copyCode {
				if err := copyToClipboard(task.Code); err != nil {
					a.logger.Warn("copy to clipboard", "code", task.Code, "error", err)
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: clipboard unavailable: %v\n", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&copyCode, "copy", "c", false, "copy the new code to the clipboard")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func runList(cmd *cobra.Command, opts *rootOptions, asJSON bool) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.manager.GetAllTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tasks yet; create one with `tt new`")
		return nil
	}
	return writeTaskTable(cmd.OutOrStdout(), rows)
}

func writeTaskTable(out io.Writer, rows []tasks.TaskRow) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tSTATUS\tCREATED\tPR\tTITLE")
	for _, row := range rows {
		pr := "-"
		if row.HasPR() {
			pr = fmt.Sprintf("%s#%d", row.PRRepo, row.PRNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.Code,
			row.Status,
			humanize.Time(row.CreatedAt),
			pr,
			row.PRTitle,
		)
	}
	return w.Flush()
}

type taskDetail struct {
	tasks.Task
	Links []tasks.PullRequestLink `json:"links"`
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <code>",
		Short: "Show a task and its pull request links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			task, err := a.manager.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			links, err := a.manager.GetPRsForTask(ctx, task.Code)
			if err != nil {
				return fmt.Errorf("list pr links: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), taskDetail{Task: task, Links: links})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "code=%s status=%s created=%s\n",
				task.Code, task.Status, task.CreatedAt.Local().Format("2006-01-02T15:04:05"))
			for _, link := range links {
				fmt.Fprintf(out, "  %s#%d %s\n", link.Repo, link.PRNumber, link.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete a task and its pull request links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			code, err := tasks.NormalizeCode(args[0])
			if err != nil {
				return err
			}
			deleted, err := a.manager.DeleteTask(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("delete task: %w", err)
			}
			if !deleted {
				return fmt.Errorf("%w: %s", tasks.ErrNotFound, code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code=%s status=deleted\n", code)
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize tasks by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			counts, err := a.manager.StatusCounts(ctx)
			if err != nil {
				return fmt.Errorf("count tasks: %w", err)
			}
			next, err := a.manager.NextCode(ctx)
			if err != nil {
				return err
			}

			summary := map[string]int{
				string(tasks.StatusOpen):   0,
				string(tasks.StatusLinked): 0,
			}
			total := 0
			for _, entry := range counts {
				summary[entry.Key] = entry.Count
				total += entry.Count
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"counts": summary,
					"total":  total,
					"next":   next,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "open=%d linked=%d total=%d next=%s\n",
				summary[string(tasks.StatusOpen)],
				summary[string(tasks.StatusLinked)],
				total,
				next,
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newNoteCmd(opts *rootOptions) *cobra.Command {
	var (
		printOnly bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "note <code>",
		Short: "Create (once) and open the markdown note for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.manager.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path, created, err := tasks.EnsureTaskNote(a.cfg.NotesDir, task.Code)
			if err != nil {
				return fmt.Errorf("ensure task note: %w", err)
			}

			out := cmd.OutOrStdout()
			if printOnly {
				status := "existing"
				if created {
					status = "created"
				}
				fmt.Fprintf(out, "code=%s status=%s note_path=%s\n", task.Code, status, path)
				return nil
			}

			editor, editorArgs := tasks.ResolveEditorCommand(os.Getenv("EDITOR"), path)
			if dryRun {
				fmt.Fprintf(out, "code=%s editor=%s args=%s\n", task.Code, editor, strings.Join(editorArgs, " "))
				return nil
			}

			// #nosec G204 -- the editor comes from $EDITOR, chosen by the user.
			editorCmd := exec.CommandContext(cmd.Context(), editor, editorArgs...)
			editorCmd.Stdin = cmd.InOrStdin()
			editorCmd.Stdout = out
			editorCmd.Stderr = cmd.ErrOrStderr()
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("run editor %s: %w", editor, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the note path instead of opening it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the editor command without running it")
	return cmd
}

func newUICmd(opts *rootOptions) *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts, preview)
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "render the first screen once and exit")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

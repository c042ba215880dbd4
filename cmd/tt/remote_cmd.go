package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sumanthaka/TerminalTask/internal/github"
	"github.com/sumanthaka/TerminalTask/internal/reconcile"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

func parsePRNumber(raw string) (int, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("invalid pull request number %q", raw)
	}
	return number, nil
}

// lookupPR fetches PR details, falling back to a bare reference when gh
// cannot answer and the caller supplied a title.
func (a *app) lookupPR(ctx context.Context, repo string, number int, title string) (github.Reference, error) {
	if ref, ok := a.scanner.GetPRDetails(ctx, number, repo); ok {
		if strings.TrimSpace(title) != "" {
			ref.Title = title
		}
		return ref, nil
	}
	if strings.TrimSpace(title) == "" {
		return github.Reference{}, fmt.Errorf("could not fetch %s#%d from GitHub; pass --title", repo, number)
	}
	return github.Reference{Number: number, Title: title, Repo: repo}, nil
}

func newLinkCmd(opts *rootOptions) *cobra.Command {
	var (
		repo  string
		title string
	)
	cmd := &cobra.Command{
		Use:   "link <code> <pr>",
		Short: "Link a pull request to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parsePRNumber(args[1])
			if err != nil {
				return err
			}

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
			resolvedRepo, err := a.resolveRepo(ctx, repo)
			if err != nil {
				return err
			}
			ref, err := a.lookupPR(ctx, resolvedRepo, number, title)
			if err != nil {
				return err
			}

			link, err := a.manager.LinkPRToTask(ctx, task.Code, ref.Repo, ref.Number, ref.Title, ref.Body)
			if err != nil {
				return fmt.Errorf("link pr to task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code=%s status=%s pr=%s#%d\n", link.TaskCode, tasks.StatusLinked, link.Repo, link.PRNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository in owner/repo format")
	cmd.Flags().StringVar(&title, "title", "", "PR title to store when gh cannot be reached")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		repo     string
		prNumber int
	)
	cmd := &cobra.Command{
		Use:   "import <code>",
		Short: "Create a task at an existing code, optionally linking a PR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := tasks.NormalizeCode(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			item := reconcile.Item{Kind: reconcile.KindImport, TaskCode: code}
			if prNumber > 0 {
				resolvedRepo, err := a.resolveRepo(ctx, repo)
				if err != nil {
					return err
				}
				ref, err := a.lookupPR(ctx, resolvedRepo, prNumber, fmt.Sprintf("PR #%d", prNumber))
				if err != nil {
					return err
				}
				ref.TaskCode = code
				item.PR = ref
			}

			outcome, err := a.engine.Apply(ctx, item)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository in owner/repo format")
	cmd.Flags().IntVar(&prNumber, "pr", 0, "pull request number to link after import")
	return cmd
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <code>",
		Short: "Open the most recently linked pull request in a browser",
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
			if len(links) == 0 {
				return fmt.Errorf("%s has no linked pull request", task.Code)
			}

			latest := links[len(links)-1]
			if err := a.remote.OpenPR(ctx, latest.Repo, latest.PRNumber); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code=%s opened=%s\n", task.Code, github.PRURL(latest.Repo, latest.PRNumber))
			return nil
		},
	}
}

type syncReport struct {
	reconcile.Result
	Applied []reconcile.Outcome `json:"applied,omitempty"`
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		apply  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local tasks against GitHub pull requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			result, err := a.engine.Reconcile(ctx)
			if err != nil {
				return err
			}

			report := syncReport{Result: result}
			if apply && result.Status == reconcile.StatusActionNeeded {
				for _, item := range result.Items() {
					outcome, err := a.engine.Apply(ctx, item)
					if err != nil {
						return err
					}
					report.Applied = append(report.Applied, outcome)
				}
				if report.Result, err = a.engine.Reconcile(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, report)
			}
			for _, outcome := range report.Applied {
				printOutcome(out, outcome)
			}
			printResult(out, report.Result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "link and import every classified item")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printResult(out io.Writer, result reconcile.Result) {
	fmt.Fprintf(out, "status=%s repo=%s unlinked=%d unimported=%d pass=%s\n",
		result.Status,
		valueOrDash(result.Repo),
		len(result.UnlinkedPRs),
		len(result.UnimportedRefs),
		result.PassID,
	)
	for _, item := range result.Items() {
		fmt.Fprintf(out, "%s %s %s#%d %s %q\n",
			item.Kind,
			item.TaskCode,
			item.PR.Repo,
			item.PR.Number,
			valueOrDash(item.PR.Branch),
			item.PR.Title,
		)
	}
}

func printOutcome(out io.Writer, outcome reconcile.Outcome) {
	status := "existing"
	switch {
	case outcome.Created:
		status = "created"
	case outcome.Item.Kind == reconcile.KindLink:
		status = "linked"
	}

	line := fmt.Sprintf("code=%s status=%s", outcome.Item.TaskCode, status)
	switch {
	case outcome.Link.PRNumber > 0:
		line += fmt.Sprintf(" pr=%s#%d", outcome.Link.Repo, outcome.Link.PRNumber)
	case outcome.AlreadyLinked:
		line += fmt.Sprintf(" pr=%s#%d already_linked=true", outcome.Item.PR.Repo, outcome.Item.PR.Number)
	}
	fmt.Fprintln(out, line)
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

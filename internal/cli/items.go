package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/ui"
)

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: todo %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: todo %s", usage)
		}
		return nil
	}
}

func parseID(s string) (model.ID, error) {
	id := model.ID(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if id == "" {
		return "", usagef("empty id")
	}
	return id, nil
}

func newListCmd(a *app) *cobra.Command {
	var plain, group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items (interactive unless --plain)",
		Args:    exactArgs(0, "ls [--plain] [--group]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				c, err := a.client()
				if err != nil {
					return err
				}
				// the alternate screen owns the terminal
				a.logger.SetOutput(io.Discard)
				if err := a.runTUI(c, a.logger); err != nil {
					return fmt.Errorf("tui: %w", err)
				}
				return nil
			}

			cache, err := a.openCache()
			if err != nil {
				return err
			}
			items, err := cache.Items(cmd.Context())
			if err != nil {
				return err
			}
			lines := ui.Summary(items)
			lines = append(lines, "")
			lines = append(lines, ui.ListLines(items, group)...)
			lines = append(lines, "")
			lines = append(lines, ui.Current().Muted.Sprint("Tip: add with `todo add \"Buy milk\"`"))
			ui.Panel(a.out, lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a framed listing instead of the interactive view")
	cmd.Flags().BoolVar(&group, "group", false, "group the listing by pending/done")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new item (title can be multiple words)",
		Args:  minArgs(1, "add <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd.Context(), func(ctx context.Context, c *query.Cache) error {
				_, err := c.Create(ctx, model.Draft{
					Title:   strings.TrimSpace(strings.Join(args, " ")),
					Content: strings.TrimSpace(content),
				})
				return reported(err)
			})
		},
	}
	cmd.Flags().StringVarP(&content, "content", "c", "", "optional notes for the item")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an item's title and/or content",
		Args:  exactArgs(1, "edit <id> [--title T] [--content C]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p model.Patch
			if cmd.Flags().Changed("title") {
				t := strings.TrimSpace(title)
				p.Title = &t
			}
			if cmd.Flags().Changed("content") {
				c := strings.TrimSpace(content)
				p.Content = &c
			}
			if p.IsEmpty() {
				return usagef("edit: nothing to change (use --title or --content)")
			}
			return a.mutate(cmd.Context(), func(ctx context.Context, c *query.Cache) error {
				_, err := c.Update(ctx, id, p)
				return reported(err)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new content (empty clears it)")
	return cmd
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle done for an item",
		Args:  exactArgs(1, "done <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), func(ctx context.Context, c *query.Cache) error {
				items, err := c.Items(ctx)
				if err != nil {
					return err
				}
				it, ok := model.Find(items, id)
				if !ok {
					return &usageError{msg: fmt.Sprintf("no item with id %s", id), hint: "Hint: run `todo ls --plain` to see ids"}
				}
				_, err = c.ToggleCompleted(ctx, id, it.IsCompleted)
				return reported(err)
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item",
		Args:    exactArgs(1, "rm <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), func(ctx context.Context, c *query.Cache) error {
				return reported(c.Delete(ctx, id))
			})
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refetch the collection and print the summary",
		Args:  exactArgs(0, "refresh"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := a.openCache()
			if err != nil {
				return err
			}
			items, err := cache.Refetch(cmd.Context())
			if err != nil {
				return err
			}
			a.printSummary(items)
			return nil
		},
	}
}

// mutate runs fn against the cache, then prints the refetched summary.
func (a *app) mutate(ctx context.Context, fn func(context.Context, *query.Cache) error) error {
	cache, err := a.openCache()
	if err != nil {
		return err
	}
	if err := fn(ctx, cache); err != nil {
		return err
	}
	items, err := cache.Items(ctx)
	if err != nil {
		return fmt.Errorf("refreshing: %w", err)
	}
	a.printSummary(items)
	return nil
}

// reported marks a mutation error the cache notifier has already printed.
func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func (a *app) printSummary(items []model.Item) {
	for _, ln := range ui.Summary(items) {
		fmt.Fprintln(a.out, ln)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
)

// newRootCmd builds the command tree. open is called once before any
// subcommand runs and the session is closed after it returns.
func newRootCmd(open opener) *cobra.Command {
	var s *session

	root := &cobra.Command{
		Use:           "expensectl",
		Short:         "Inspect and edit the expense store from the command line",
		Long:          `expensectl reads and writes the same store as the expensetracker server, configured through the same environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			s, err = open(cmd.Context())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if s == nil {
				return nil
			}
			return s.close()
		},
	}
	current := func() *session { return s }

	root.AddCommand(
		newListCmd(current),
		newSummaryCmd(current),
		newAddCmd(current),
		newEditCmd(current),
		newDeleteCmd(current),
		newClearCmd(current),
		newCategoriesCmd(current),
		newExportCmd(current),
	)
	return root
}

func newListCmd(s func() *session) *cobra.Command {
	var start, end, category, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c aggregator.Criteria
			var err error
			if start != "" {
				if c.Start, err = core.ParseDate(start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			if end != "" {
				if c.End, err = core.ParseDate(end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}
			if c.Category, err = s().expenses.Registry().ValidateSelector(category); err != nil {
				return fmt.Errorf("--category %q: %w", category, err)
			}
			c.Search = search

			items := s().expenses.List(c)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
			var total core.Money
			for _, e := range items {
				total = total.Add(e.Amount)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Category, e.Amount.FormatUSD(), e.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d expenses, %s\n", len(items), total.FormatUSD())
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Only expenses on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Only expenses on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only expenses in this category")
	cmd.Flags().StringVarP(&search, "query", "q", "", "Match description or category text")
	return cmd
}

func newSummaryCmd(s func() *session) *cobra.Command {
	var month, category string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and the category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := s().expenses.Now()
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("--month must be YYYY-MM: %w", err)
				}
				now = time.Date(t.Year(), t.Month(), 1, 12, 0, 0, 0, now.Location())
			}
			stats := s().expenses.Summary(now)

			out := cmd.OutOrStdout()
			if category != "" {
				fmt.Fprintf(out, "%s:  %s\n", category, stats.AmountFor(core.Category(category)).FormatUSD())
				return nil
			}
			fmt.Fprintf(out, "Total spending:  %s\n", stats.TotalSpending.FormatUSD())
			fmt.Fprintf(out, "%s:  %s\n", now.Format("January 2006"), stats.MonthlySpending.FormatUSD())
			if stats.TopCategory != nil {
				fmt.Fprintf(out, "Top category:    %s (%s)\n", stats.TopCategory.Category, stats.TopCategory.Amount.FormatUSD())
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, ca := range stats.CategoryBreakdown {
				fmt.Fprintf(tw, "  %s\t%s\n", ca.Category, ca.Amount.FormatUSD())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to report on (YYYY-MM), default current")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Print only this category's total")
	return cmd
}

func newAddCmd(s func() *session) *cobra.Command {
	var in core.ExpenseInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Date == "" {
				in.Date = core.DateOf(s().expenses.Now()).String()
			}
			e, err := s().expenses.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s %s\n", e.ID, e.Date, e.Category, e.Amount.FormatUSD())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Date, "date", "", "Date of the expense (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "Amount, e.g. 12.50")
	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "Category label")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "What the money was spent on")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newEditCmd(s func() *session) *cobra.Command {
	var in core.ExpenseInput
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an expense; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := s().expenses.Get(args[0])
			if err != nil {
				return err
			}
			next := core.InputFrom(current)
			flags := cmd.Flags()
			if flags.Changed("date") {
				next.Date = in.Date
			}
			if flags.Changed("amount") {
				next.Amount = in.Amount
			}
			if flags.Changed("category") {
				next.Category = in.Category
			}
			if flags.Changed("description") {
				next.Description = in.Description
			}

			e, err := s().expenses.Update(cmd.Context(), args[0], next)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %s %s %s\n", e.ID, e.Date, e.Category, e.Amount.FormatUSD(), e.Description)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Date, "date", "", "New date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "New amount")
	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "New category label")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "New description")
	return cmd
}

func newClearCmd(s func() *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense; categories are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			n := s().expenses.Len()
			if err := s().expenses.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d expenses\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all expenses")
	return cmd
}

func newDeleteCmd(s func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s().expenses.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newCategoriesCmd(s func() *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the known categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range s().expenses.Categories() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := s().expenses.AddCategory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added category %s\n", c)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove a category; existing expenses keep their label",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s().expenses.RemoveCategory(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed category %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newExportCmd(s func() *session) *cobra.Command {
	var (
		req        core.ExportRequest
		out        string
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render expenses to a CSV, JSON or PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("category") {
				req.Categories = make([]core.Category, 0, len(categories))
				for _, c := range categories {
					if c = strings.TrimSpace(c); c != "" {
						req.Categories = append(req.Categories, core.Category(c))
					}
				}
				var err error
				if req.Categories, err = s().expenses.Registry().ValidateSet(req.Categories); err != nil {
					return fmt.Errorf("--category: %w", err)
				}
			}

			doc, err := s().exports.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = doc.Filename
			}
			if path == "-" {
				_, err := cmd.OutOrStdout().Write(doc.Body)
				return err
			}
			if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d expenses to %s (%d bytes)\n", doc.Records, path, doc.Size())
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Format, "format", "f", "csv", "Output format: csv, json or pdf")
	cmd.Flags().StringVarP(&req.Template, "template", "t", "custom", "Template: custom, category-analysis or monthly-summary")
	cmd.Flags().StringVar(&req.Start, "start", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.End, "end", "", "Last date to include (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "Categories to include, default all")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, - for stdout, default a dated file name")
	return cmd
}

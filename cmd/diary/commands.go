package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "diary",
		Short:         "Analyze and keep journal entries",
		Long:          "Classifies Korean journal entries into a two-tier category taxonomy, extracts keywords and scores sentiment. Falls back to a local heuristic when no remote model is configured.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&a.flags.envPath, "env", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&a.flags.driver, "store", "", "store driver: sqlite, mongo or memory (default from config)")
	pf.StringVarP(&a.flags.dbPath, "db", "d", "", "sqlite path or mongo URI (default from config)")
	pf.StringVarP(&a.flags.userID, "user", "u", "", "user the entries and learning belong to")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		analyzeCmd(a),
		addCmd(a),
		listCmd(a),
		reviseCmd(a),
		correctCmd(a),
		keywordsCmd(a),
		hintsCmd(a),
		rmCmd(a),
		countCmd(a),
	)
	return root
}

// run builds the app around fn and releases it afterwards.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		if err := a.setup(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

// runAsUser is run for commands that read or change one user's data.
func (a *app) runAsUser(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	inner := a.run(fn)
	return func(cmd *cobra.Command, args []string) error {
		if err := a.requireUser(); err != nil {
			return err
		}
		return inner(cmd, args)
	}
}

func analyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <text>",
		Short: "Analyze an entry without saving it (hints apply when --user is set)",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			res := a.diary.Analyze(cmd.Context(), strings.Join(args, " "), a.flags.userID)
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
}

func addCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Analyze an entry and save it",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			e, err := a.diary.SaveEntry(cmd.Context(), a.flags.userID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		}),
	}
}

func listCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries, newest first",
		Args:  cobra.NoArgs,
		RunE: a.runAsUser(func(cmd *cobra.Command, _ []string) error {
			entries, err := a.diary.RecentEntries(cmd.Context(), a.flags.userID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "max entries")
	return cmd
}

func reviseCmd(a *app) *cobra.Command {
	var (
		category string
		kws      []string
	)
	cmd := &cobra.Command{
		Use:   "revise <id>",
		Short: "Change an entry's category or keywords and learn from the edit",
		Args:  cobra.ExactArgs(1),
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keywords") {
				kws = nil
			}
			e, err := a.diary.ReviseEntry(cmd.Context(), a.flags.userID, args[0], taxonomy.Sub(category), kws)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		}),
	}
	cmd.Flags().StringVar(&category, "category", "", "new subcategory, e.g. 운동")
	cmd.Flags().StringSliceVar(&kws, "keywords", nil, "replacement keywords (comma-separated)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func correctCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "correct <from> <to>",
		Short: "Record that an entry filed under <from> belonged in <to>",
		Args:  cobra.ExactArgs(2),
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			a.diary.RecordUserCorrection(cmd.Context(), a.flags.userID, args[0], args[1])
			return nil
		}),
	}
}

func keywordsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <sub> <keyword>...",
		Short: "Record keywords the user associates with a subcategory",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			a.diary.RecordUserKeywords(cmd.Context(), a.flags.userID, args[0], args[1:])
			return nil
		}),
	}
}

func hintsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hints",
		Short: "Print the learning hints sent with the next analysis",
		Args:  cobra.NoArgs,
		RunE: a.runAsUser(func(cmd *cobra.Command, _ []string) error {
			if h := a.diary.Hints(cmd.Context(), a.flags.userID); h != "" {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		}),
	}
}

func rmCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "rm <id>... | rm --all",
		Short: "Delete the user's entries",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			var (
				n   int
				err error
			)
			if all {
				n, err = a.diary.ClearEntries(cmd.Context(), a.flags.userID)
			} else {
				n, err = a.diary.DeleteEntries(cmd.Context(), a.flags.userID, args)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every entry of the user (learning is kept)")
	return cmd
}

func countCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <sub>",
		Short: "Count the user's entries in a subcategory",
		Args:  cobra.ExactArgs(1),
		RunE: a.runAsUser(func(cmd *cobra.Command, args []string) error {
			sub := taxonomy.Sub(args[0])
			if !taxonomy.IsSub(sub) {
				return fmt.Errorf("%w: %q", internalerr.ErrUnknownSubcategory, args[0])
			}
			n, err := a.diary.CategoryCount(cmd.Context(), a.flags.userID, sub)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		}),
	}
}

package main

import (
	"fmt"

	"github.com/partvault/partvault/internal/config"
	"github.com/partvault/partvault/internal/conflict"
	"github.com/partvault/partvault/internal/gitsync"
	"github.com/partvault/partvault/internal/lifecycle"
	"github.com/spf13/cobra"
)

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Design repository commands",
	}

	cmd.AddCommand(newRepoInitCmd())
	cmd.AddCommand(newRepoStatusCmd())
	cmd.AddCommand(newRepoResolveCmd())
	cmd.AddCommand(newRepoCompleteCmd())
	cmd.AddCommand(newRepoAbortMergeCmd())
	return cmd
}

func newRepoInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the design repository",
		Long:  "Creates a git repository at the configured path with LFS tracking for CAD file patterns and the default PLM hooks installed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

func runRepoInit(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := lifecycle.InitRepository(cfg.Repo.Path, cfg.Repo.LfsPatterns, gitsync.Options{
		AuthorName: cfg.User.Name,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized design repository at %s\n", repo.Path())
	fmt.Fprintf(out, "LFS tracking: %d pattern(s)\n", len(cfg.Repo.LfsPatterns))
	fmt.Fprintln(out, "Hooks installed: pre-commit, post-commit")
	return nil
}

func newRepoStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show repository state",
		Long:  "Shows the current branch, whether a merge is in progress, and any conflicted files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

func runRepoStatus(cmd *cobra.Command, configPath string) error {
	_, coord, err := openCoordinator(configPath)
	if err != nil {
		return err
	}

	repo := coord.Repo()
	out := cmd.OutOrStdout()

	branch, err := repo.CurrentBranch()
	if err != nil {
		fmt.Fprintln(out, "Branch:  (detached HEAD)")
	} else {
		fmt.Fprintf(out, "Branch:  %s\n", branch)
	}

	if repo.State() != gitsync.StateMerging {
		fmt.Fprintln(out, "State:   clean")
		return nil
	}

	fmt.Fprintln(out, "State:   merging")
	conflicts, err := conflict.NewResolver(repo).Detect()
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "All conflicts resolved. Run \"partvault repo complete\" to finish the merge.")
		return nil
	}

	fmt.Fprintf(out, "\nConflicted files (%d):\n", len(conflicts))
	for _, c := range conflicts {
		kind := "text"
		if conflict.IsBOMFile(c.Path) {
			kind = "bom"
		}
		fmt.Fprintf(out, "  %s (%s)\n", c.Path, kind)
	}
	return nil
}

func newRepoResolveCmd() *cobra.Command {
	var (
		configPath string
		strategy   string
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Resolve a conflicted file",
		Long: `Resolves one conflicted file with the chosen strategy and stages the result.

Text files accept: ours, theirs, union.
BOM files accept:  prefer-ours, prefer-theirs, merge-quantities.

The file kind is detected from the path; bill-of-materials files are .bom
files or csv/txt files named bom*.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoResolve(cmd, configPath, args[0], strategy)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&strategy, "strategy", "", "resolution strategy (required)")
	cmd.MarkFlagRequired("strategy")
	return cmd
}

func runRepoResolve(cmd *cobra.Command, configPath, path, strategy string) error {
	_, coord, err := openCoordinator(configPath)
	if err != nil {
		return err
	}
	resolver := conflict.NewResolver(coord.Repo())

	if conflict.IsBOMFile(path) {
		s, err := conflict.ParseBOMStrategy(strategy)
		if err != nil {
			return err
		}
		if err := resolver.ResolveBOM(path, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s (%s)\n", path, s)
		return nil
	}

	s, err := conflict.ParseTextStrategy(strategy)
	if err != nil {
		return err
	}
	if err := resolver.ResolveText(path, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s (%s)\n", path, s)
	return nil
}

func newRepoCompleteCmd() *cobra.Command {
	var (
		configPath string
		message    string
	)

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete an in-progress merge",
		Long:  "Commits the merge once every conflicted file has been resolved, then rerun the release.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}

			hash, err := conflict.NewResolver(coord.Repo()).Complete(message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merge completed: %s\n", truncate(hash, 12))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&message, "message", "Merge review branch", "merge commit message")
	return cmd
}

func newRepoAbortMergeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "abort-merge",
		Short: "Abort an in-progress merge",
		Long:  "Restores the worktree and index to their pre-merge state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}

			if err := conflict.NewResolver(coord.Repo()).Abort(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Merge aborted.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

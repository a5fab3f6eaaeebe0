package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRevisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Revision lifecycle commands",
	}

	cmd.AddCommand(newRevisionSubmitCmd())
	cmd.AddCommand(newRevisionApproveCmd())
	cmd.AddCommand(newRevisionRejectCmd())
	cmd.AddCommand(newRevisionReleaseCmd())
	cmd.AddCommand(newRevisionNewCmd())
	cmd.AddCommand(newRevisionObsoleteCmd())
	return cmd
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID %q", kind, raw)
	}
	return id, nil
}

func newRevisionSubmitCmd() *cobra.Command {
	var (
		configPath string
		reviewers  []string
	)

	cmd := &cobra.Command{
		Use:   "submit <revision-id>",
		Short: "Submit a draft revision for review",
		Long: `Moves a draft revision into review: creates the review branch and opens
one pending approval per reviewer. Reviewers default to the config file's
reviewers list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			if len(reviewers) == 0 {
				reviewers = cfg.Reviewers
			}

			if err := coord.SubmitForReview(actorFromConfig(cfg), id, reviewers); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Revision %d submitted for review\n", id)
			fmt.Fprintf(out, "Reviewers: %d pending\n", len(reviewers))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringSliceVar(&reviewers, "reviewer", nil, "reviewer to request approval from (repeatable)")
	return cmd
}

func newRevisionApproveCmd() *cobra.Command {
	var (
		configPath string
		comments   string
	)

	cmd := &cobra.Command{
		Use:   "approve <revision-id>",
		Short: "Approve an in-review revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			if err := coord.ApproveRevision(actorFromConfig(cfg), id, comments); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision %d approved by %s\n", id, cfg.User.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&comments, "comments", "", "review comments")
	return cmd
}

func newRevisionRejectCmd() *cobra.Command {
	var (
		configPath string
		comments   string
	)

	cmd := &cobra.Command{
		Use:   "reject <revision-id>",
		Short: "Reject an in-review revision",
		Long:  "Records a rejection and sends the revision back to draft. Other reviewers' approvals are left in place.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			if err := coord.RejectRevision(actorFromConfig(cfg), id, comments); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision %d rejected, back to draft\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&comments, "comments", "", "review comments")
	return cmd
}

func newRevisionReleaseCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "release <revision-id>",
		Short: "Release an approved revision",
		Long: `Merges the review branch into main and marks the revision released.
If the merge conflicts, the repository is left mid-merge and the revision
stays in review; resolve with "repo resolve" and release again, or run
"repo abort-merge".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			result, err := coord.ReleaseRevision(actorFromConfig(cfg), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.HasConflicts {
				fmt.Fprintf(out, "Merge conflicts in %d file(s):\n", len(result.ConflictedFiles))
				for _, f := range result.ConflictedFiles {
					fmt.Fprintf(out, "  %s\n", f)
				}
				fmt.Fprintln(out, "\nRevision stays in review. Resolve with \"partvault repo resolve\" and release again.")
				return nil
			}

			switch {
			case result.UpToDate:
				fmt.Fprintf(out, "Revision %d released (already merged, commit %s)\n", id, truncate(result.CommitID, 12))
			case result.FastForward:
				fmt.Fprintf(out, "Revision %d released (fast-forward to %s)\n", id, truncate(result.CommitID, 12))
			default:
				fmt.Fprintf(out, "Revision %d released (merge commit %s)\n", id, truncate(result.CommitID, 12))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

func newRevisionNewCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "new <part-id>",
		Short: "Open the next draft revision of a released part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("part", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			rev, err := coord.CreateRevision(actorFromConfig(cfg), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created revision %s of part %d (draft)\n", rev.Version, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

func newRevisionObsoleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "obsolete <revision-id>",
		Short: "Mark a released revision obsolete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}

			cfg, coord, err := openCoordinator(configPath)
			if err != nil {
				return err
			}
			if err := coord.MarkAsObsolete(actorFromConfig(cfg), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision %d marked obsolete\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

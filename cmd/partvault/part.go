package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/partvault/partvault/internal/store"
	"github.com/spf13/cobra"
)

func newPartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "part",
		Short: "Part management commands",
	}

	cmd.AddCommand(newPartCreateCmd())
	cmd.AddCommand(newPartListCmd())
	cmd.AddCommand(newPartShowCmd())
	return cmd
}

func newPartCreateCmd() *cobra.Command {
	var (
		configPath  string
		category    string
		subcategory string
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new part",
		Long:  "Creates a part with an auto-assigned ID, its first draft revision, and the draft branch in the design repository.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartCreate(cmd, configPath, category, subcategory, name, description)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&category, "category", "", "part category (required)")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "part subcategory (required)")
	cmd.Flags().StringVar(&name, "name", "", "part name (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("subcategory")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runPartCreate(cmd *cobra.Command, configPath, category, subcategory, name, description string) error {
	cfg, coord, err := openCoordinator(configPath)
	if err != nil {
		return err
	}

	part, rev, err := coord.CreatePart(actorFromConfig(cfg), category, subcategory, name, description)
	if err != nil {
		return err
	}

	branch, err := coord.DraftBranch(part)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created part %d (%s)\n", part.ID, part.Name)
	fmt.Fprintf(out, "Revision: %s (%s)\n", rev.Version, rev.Status)
	fmt.Fprintf(out, "Branch: %s\n", branch)
	return nil
}

func newPartListCmd() *cobra.Command {
	var (
		configPath  string
		category    string
		subcategory string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List parts",
		Long:  "Lists parts with optional filters. Output is formatted as a table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartList(cmd, configPath, store.PartFilters{
				Category:    category,
				Subcategory: subcategory,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "filter by subcategory")
	return cmd
}

func runPartList(cmd *cobra.Command, configPath string, filters store.PartFilters) error {
	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}

	parts, err := st.ListParts(filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(parts) == 0 {
		fmt.Fprintln(out, "No parts found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSUBCATEGORY\tLATEST\tSTATUS")
	for _, p := range parts {
		version, status := "-", "-"
		if latest, err := st.LatestRevision(p.ID); err == nil {
			version, status = latest.Version, latest.Status
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, truncate(p.Name, 40), p.Category, p.Subcategory, version, status)
	}
	w.Flush()
	return nil
}

func newPartShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show part details",
		Long:  "Displays full details of a part including every revision and its approvals.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid part ID %q", args[0])
			}
			return runPartShow(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	return cmd
}

func runPartShow(cmd *cobra.Command, configPath string, id int64) error {
	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}

	p, err := st.GetPart(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %d\n", p.ID)
	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	fmt.Fprintf(out, "Category:    %s\n", p.Category)
	fmt.Fprintf(out, "Subcategory: %s\n", p.Subcategory)
	fmt.Fprintf(out, "Created:     %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated:     %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	if p.Description != "" {
		fmt.Fprintf(out, "\nDescription:\n%s\n", p.Description)
	}

	if len(p.Revisions) > 0 {
		fmt.Fprintln(out, "\nRevisions:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  ID\tVERSION\tSTATUS\tCREATED BY\tCOMMIT")
		for _, r := range p.Revisions {
			commit := "-"
			if r.CommitHash != nil {
				commit = truncate(*r.CommitHash, 12)
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\n",
				r.ID, r.Version, r.Status, r.CreatedBy, commit)
		}
		w.Flush()
	}

	for _, r := range p.Revisions {
		approvals, err := st.ListApprovals(r.ID)
		if err != nil || len(approvals) == 0 {
			continue
		}
		fmt.Fprintf(out, "\nApprovals for revision %s:\n", r.Version)
		for _, a := range approvals {
			decided := "-"
			if a.DecidedAt != nil {
				decided = a.DecidedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(out, "  [%s] %s: %s", decided, a.Approver, a.Status)
			if a.Comments != "" {
				fmt.Fprintf(out, " (%s)", a.Comments)
			}
			fmt.Fprintln(out)
		}
	}

	return nil
}

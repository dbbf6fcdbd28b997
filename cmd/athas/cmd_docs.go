package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	runtimesvc "github.com/adhyaay-karnwal/athas/app/athas/runtime"
	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/hardware"
)

// newDocsCmd groups document management. Documents only outlive the process
// through the snapshot, so these commands always persist.
func newDocsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the project's hardware documents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.resolve(cmd); err != nil {
				return err
			}
			c.cfg.Watch = false
			if c.cfg.SnapshotPath == "" {
				c.cfg.Persist = true
				return c.cfg.Normalize()
			}
			return nil
		},
	}
	cmd.AddCommand(newDocsAddCmd(c), newDocsListCmd(c), newDocsRemoveCmd(c))
	return cmd
}

func newDocsAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Upload documents and extract their metadata and hardware data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				paths = append(paths, abs)
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				docs, err := rt.Upload(ctx, paths)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s %s %s\n", doc.ID, doc.Name, dimStyle.Render("["+doc.Type.Label()+"]"))
				}
				if skipped := len(paths) - len(docs); skipped > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s) skipped, see the log for details\n", skipped)
				}
				return nil
			})
		},
	}
}

func newDocsListCmd(c *cli) *cobra.Command {
	var query, filter string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, optionally filtered by type and search query",
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, ok := docstore.ParseFilterType(filter)
			if !ok {
				return fmt.Errorf("unknown document type %q", filter)
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				docs := docstore.FilterDocuments(rt.Store.ProjectDocuments(rt.Store.CurrentProject()), ft, query)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), docs)
				}
				printDocuments(cmd.OutOrStdout(), docs)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match name, tags, manufacturer or part number")
	cmd.Flags().StringVarP(&filter, "type", "t", "all", "Document type (all, datasheet, reference-manual, schematic, company-knowledge, other)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printDocuments(w io.Writer, docs []hardware.HardwareDocument) {
	if len(docs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no documents"))
		return
	}
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%-24s %-18s %s", "ID", "TYPE", "NAME")))
	for _, doc := range docs {
		line := fmt.Sprintf("%-24s %-18s %s", doc.ID, doc.Type.Label(), doc.Name)
		if doc.ExtractedData != nil {
			if summary := hardware.ExtractedDataSummary(*doc.ExtractedData); summary != "" {
				line += "  " + dimStyle.Render(summary)
			}
		}
		fmt.Fprintln(w, line)
	}
}

func newDocsRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove documents by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				for _, id := range args {
					doc, err := rt.Store.Document(id)
					if err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					rt.Store.RemoveDocument(doc.ProjectID, doc.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", doc.ID, doc.Name)
				}
				return nil
			})
		},
	}
}

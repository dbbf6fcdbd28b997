package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	runtimesvc "github.com/adhyaay-karnwal/athas/app/athas/runtime"
	"github.com/adhyaay-karnwal/athas/app/athas/tui"
	"github.com/adhyaay-karnwal/athas/server"
	"github.com/adhyaay-karnwal/athas/viewer"
)

func newBrowseCmd(c *cli) *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse, search and remove documents in a terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				if serve {
					stop, err := rt.StartServer(ctx, c.cfg.ServerAddr)
					if err != nil {
						return err
					}
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						_ = stop(shutdownCtx)
					}()
				}
				return tui.Run(ctx, rt)
			})
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "Run the HTTP API server alongside the browser")
	return cmd
}

func stdio(cmd *cobra.Command) server.StdioConn {
	return server.StdioConn{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()}
}

func newViewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Inspect PCB designs, 3D models and test results",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON")

	pcb := &cobra.Command{
		Use:   "pcb <file>",
		Short: "Summarize a KiCad or Eagle board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			design, err := viewer.LoadPCBDesign(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), design)
			}
			printPCB(cmd.OutOrStdout(), design)
			return nil
		},
	}
	model := &cobra.Command{
		Use:   "model <file>",
		Short: "Summarize an STL, OBJ or STEP model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := viewer.Load3DModel(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render(m.FilePath))
			fmt.Fprintf(out, "  vertices   %d\n", len(m.Vertices)/3)
			fmt.Fprintf(out, "  triangles  %d\n", m.Triangles())
			fmt.Fprintf(out, "  bounds     %v .. %v\n", m.Bounds.Min, m.Bounds.Max)
			return nil
		},
	}
	tests := &cobra.Command{
		Use:   "tests <file>",
		Short: "Summarize JUnit XML or JSON test results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := viewer.LoadTestResults(args[0])
			if err != nil {
				return err
			}
			summary := viewer.Summarize(results)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), server.ViewerResponse{
					Kind:    viewer.KindTestResult,
					Tests:   results,
					Summary: &summary,
				})
			}
			printTests(cmd.OutOrStdout(), results, summary)
			return nil
		},
	}
	cmd.AddCommand(pcb, model, tests)
	return cmd
}

func printPCB(w io.Writer, d *viewer.PCBDesign) {
	fmt.Fprintln(w, headingStyle.Render(d.FilePath))
	fmt.Fprintf(w, "  layers      %s\n", strings.Join(d.Layers, ", "))
	fmt.Fprintf(w, "  components  %d\n", len(d.Components))
	fmt.Fprintf(w, "  nets        %d\n", len(d.Nets))
	fmt.Fprintf(w, "  traces      %d\n", len(d.Traces))
	for _, comp := range d.Components {
		fmt.Fprintf(w, "  %-8s %-10s %-20s %s\n", comp.Name, comp.Type, comp.Value,
			dimStyle.Render(fmt.Sprintf("(%.2f, %.2f) %g°", comp.Position.X, comp.Position.Y, comp.Rotation)))
	}
}

func printTests(w io.Writer, results []viewer.TestResult, s viewer.TestSummary) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%d tests: %d passed, %d failed, %d skipped", s.Total, s.Passed, s.Failed, s.Skipped)))
	for _, r := range results {
		fmt.Fprintf(w, "  %-8s %s %s\n", r.Status, r.Name, dimStyle.Render(fmt.Sprintf("%.0fms", r.Duration)))
	}
}

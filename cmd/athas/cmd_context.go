package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	runtimesvc "github.com/adhyaay-karnwal/athas/app/athas/runtime"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/workspace"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newContextCmd(c *cli) *cobra.Command {
	var format, style string
	var render bool
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the hardware context appended to chat prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			c.cfg.Watch = false
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), rt.HardwareContext(ctx))
				}
				text := rt.RenderContext(ctx)
				if render {
					rendered, err := renderMarkdown(text, style)
					if err != nil {
						return err
					}
					text = rendered
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&render, "render", false, "Render the markdown for the terminal")
	cmd.Flags().StringVar(&style, "style", "", "Glamour style (dark, light, notty); default detects the terminal")
	return cmd
}

// renderMarkdown styles md for the terminal. An empty style auto-detects.
func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(md)
}

func newClassifyCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "classify [dir]",
		Short: "Classify a project tree into firmware, PCB, schematic and test-result files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := c.cfg.Workspace
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				root = abs
			}
			entries, err := workspace.Snapshot(root, c.cfg.Tree)
			if err != nil {
				return err
			}
			classified := hardware.Classify(entries)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), classified)
			}
			printClassification(cmd.OutOrStdout(), classified)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printClassification(w io.Writer, c hardware.Classification) {
	for _, category := range hardware.FileCategories() {
		paths := c.Paths(category)
		fmt.Fprintf(w, "%s %s\n", headingStyle.Render(string(category)), dimStyle.Render(fmt.Sprintf("(%d)", len(paths))))
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}

func newModesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "modes [mode]",
		Short: "List session modes and slash commands, or print a mode's session prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if _, ok := hardware.ParseSessionMode(args[0]); !ok {
					return fmt.Errorf("unknown mode %q", args[0])
				}
				_, err := fmt.Fprintln(out, hardware.SessionPrompt(args[0]))
				return err
			}
			if asJSON {
				return writeJSON(out, map[string]interface{}{
					"modes":    hardware.SessionModes(),
					"commands": hardware.SlashCommands(),
				})
			}
			fmt.Fprintln(out, headingStyle.Render("Modes"))
			for _, m := range hardware.SessionModes() {
				fmt.Fprintf(out, "  %-22s %s\n", m.ID, dimStyle.Render(m.Description))
			}
			fmt.Fprintln(out, headingStyle.Render("Commands"))
			for _, sc := range hardware.SlashCommands() {
				fmt.Fprintf(out, "  /%-21s %s\n", sc.Name, dimStyle.Render(sc.Description))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace, extractor and snapshot diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.Watch = false
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				status := rt.Status(ctx)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), status)
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printStatus(w io.Writer, s runtimesvc.StatusSnapshot) {
	env := s.Environment
	fmt.Fprintln(w, headingStyle.Render("Workspace"))
	fmt.Fprintf(w, "  root        %s\n", env.Workspace.Root)
	fmt.Fprintf(w, "  files       %d (firmware %d, pcb %d, schematics %d, test results %d)\n",
		env.Workspace.Files, env.Workspace.Firmware, env.Workspace.PCB, env.Workspace.Schematics, env.Workspace.Tests)
	fmt.Fprintf(w, "  documents   %d\n", s.Documents)
	fmt.Fprintf(w, "  summary     %s\n", s.Summary)
	fmt.Fprintln(w, headingStyle.Render("Extraction"))
	fmt.Fprintf(w, "  extractor   %s\n", env.Extractor)
	if env.Extractor != runtimesvc.ExtractorLocal {
		health := "unreachable"
		if env.Ollama.Healthy {
			health = "ok"
		}
		fmt.Fprintf(w, "  ollama      %s (%s)\n", env.Ollama.Endpoint, health)
		fmt.Fprintf(w, "  model       %s (present: %t)\n", env.Ollama.SelectedModel, env.Ollama.ModelPresent)
		if env.Ollama.Error != "" {
			fmt.Fprintf(w, "  error       %s\n", env.Ollama.Error)
		}
	}
	fmt.Fprintln(w, headingStyle.Render("Snapshot"))
	if !env.Snapshot.Enabled {
		fmt.Fprintln(w, "  disabled")
		return
	}
	fmt.Fprintf(w, "  path        %s (exists: %t)\n", env.Snapshot.Path, env.Snapshot.Exists)
}

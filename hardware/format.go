package hardware

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxListedFiles caps each file section of the rendered context.
const MaxListedFiles = 20

const (
	NoProjectSummary  = "No project is currently open."
	NoHardwareSummary = "No hardware-specific files or documentation detected in this project."
	noExtractedData   = "No hardware data extracted"
)

// FormatExtractedData renders extracted data as markdown for a chat prompt.
// Empty collections produce no section.
func FormatExtractedData(data ExtractedData) string {
	var b strings.Builder
	if data.Summary != "" {
		fmt.Fprintf(&b, "## Document Summary\n%s\n", data.Summary)
	}
	if len(data.RegisterMaps) > 0 {
		b.WriteString("## Register Maps\n")
		for _, reg := range data.RegisterMaps {
			fmt.Fprintf(&b, "### %s\n", reg.Name)
			fmt.Fprintf(&b, "- Address: %s\n", reg.Address)
			fmt.Fprintf(&b, "- Description: %s\n", reg.Description)
			fmt.Fprintf(&b, "- Bit Width: %d\n", reg.BitWidth)
			fmt.Fprintf(&b, "- Access: %s\n", reg.Access)
			if reg.ResetValue != "" {
				fmt.Fprintf(&b, "- Reset Value: %s\n", reg.ResetValue)
			}
			if len(reg.Fields) > 0 {
				b.WriteString("**Fields:**\n")
				for _, field := range reg.Fields {
					fmt.Fprintf(&b, "  - %s [%d:%d]: %s\n", field.Name, field.BitRange[0], field.BitRange[1], field.Description)
					if len(field.EnumValues) > 0 {
						b.WriteString("    - Enum values:\n")
						for _, ev := range field.EnumValues {
							fmt.Fprintf(&b, "      - %s: %s\n", ev.Value, ev.Description)
						}
					}
				}
			}
			b.WriteString("\n")
		}
	}
	if len(data.TimingConstraints) > 0 {
		b.WriteString("## Timing Constraints\n")
		for _, timing := range data.TimingConstraints {
			fmt.Fprintf(&b, "### %s\n", timing.Name)
			fmt.Fprintf(&b, "- Parameter: %s\n", timing.Parameter)
			writeLimits(&b, timing.Min, timing.Typ, timing.Max, timing.Unit)
			if timing.Condition != "" {
				fmt.Fprintf(&b, "- Condition: %s\n", timing.Condition)
			}
			b.WriteString("\n")
		}
	}
	if len(data.Pinouts) > 0 {
		b.WriteString("## Pinouts\n")
		for _, pin := range data.Pinouts {
			fmt.Fprintf(&b, "- %s: %s (%s)", pin.PinNumber, pin.Name, pin.Type)
			if pin.Description != "" {
				fmt.Fprintf(&b, " - %s", pin.Description)
			}
			if pin.Function != "" {
				fmt.Fprintf(&b, " [%s]", pin.Function)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(data.ElectricalSpecs) > 0 {
		b.WriteString("## Electrical Specifications\n")
		for _, spec := range data.ElectricalSpecs {
			fmt.Fprintf(&b, "### %s\n", spec.Parameter)
			writeLimits(&b, spec.Min, spec.Typ, spec.Max, spec.Unit)
			if spec.Condition != "" {
				fmt.Fprintf(&b, "- Condition: %s\n", spec.Condition)
			}
			b.WriteString("\n")
		}
	}
	if len(data.Configurations) > 0 {
		b.WriteString("## Configurations\n")
		for _, cfg := range data.Configurations {
			fmt.Fprintf(&b, "### %s\n", cfg.Name)
			fmt.Fprintf(&b, "- Description: %s\n", cfg.Description)
			b.WriteString("**Settings:**\n")
			keys := make([]string, 0, len(cfg.Settings))
			for key := range cfg.Settings {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(&b, "  - %s: %s\n", key, formatSetting(cfg.Settings[key]))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeLimits(b *strings.Builder, min, typ, max *float64, unit string) {
	if min != nil {
		fmt.Fprintf(b, "- Min: %s %s\n", formatNumber(*min), unit)
	}
	if typ != nil {
		fmt.Fprintf(b, "- Typ: %s %s\n", formatNumber(*typ), unit)
	}
	if max != nil {
		fmt.Fprintf(b, "- Max: %s %s\n", formatNumber(*max), unit)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSetting(v any) string {
	switch val := v.(type) {
	case float64:
		return formatNumber(val)
	case float32:
		return formatNumber(float64(val))
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// ExtractedDataSummary is the short count line shown under a document in the
// documents panel.
func ExtractedDataSummary(data ExtractedData) string {
	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(len(data.RegisterMaps), "register maps")
	add(len(data.TimingConstraints), "timing constraints")
	add(len(data.Pinouts), "pin definitions")
	add(len(data.ElectricalSpecs), "electrical specifications")
	add(len(data.Configurations), "configurations")
	if len(parts) == 0 {
		return noExtractedData
	}
	return "Contains " + strings.Join(parts, ", ")
}

// DocumentationContext renders each document with extracted data under its
// own heading. It returns "" when no document has been extracted yet.
func DocumentationContext(docs []HardwareDocument) string {
	var parts []string
	for _, doc := range docs {
		if doc.ExtractedData == nil {
			continue
		}
		parts = append(parts,
			fmt.Sprintf("# %s (%s)\n", doc.Name, doc.Type),
			FormatExtractedData(*doc.ExtractedData),
			"\n",
		)
	}
	if len(parts) == 0 {
		return ""
	}
	return "## Hardware Documentation Context\n\n" + strings.Join(parts, "\n")
}

// Digest composes the one-line summary: a documentation flag followed by the
// count of every non-empty bucket.
func Digest(ctx HardwareContext) string {
	var parts []string
	if strings.TrimSpace(ctx.DocumentationContext) != "" {
		parts = append(parts, "Hardware documentation available")
	}
	if n := len(ctx.FirmwareFiles); n > 0 {
		parts = append(parts, fmt.Sprintf("%d firmware files", n))
	}
	if n := len(ctx.PCBFiles); n > 0 {
		parts = append(parts, fmt.Sprintf("%d PCB files", n))
	}
	if n := len(ctx.Schematics); n > 0 {
		parts = append(parts, fmt.Sprintf("%d schematics", n))
	}
	if n := len(ctx.TestResults); n > 0 {
		parts = append(parts, fmt.Sprintf("%d test results", n))
	}
	if len(parts) == 0 {
		return NoHardwareSummary
	}
	return strings.Join(parts, " • ")
}

// FormatContext renders a context as the text block appended to a chat
// prompt. File sections list at most MaxListedFiles entries; the context
// itself keeps every path.
func FormatContext(ctx HardwareContext) string {
	var lines []string
	if hasContent(ctx) {
		lines = append(lines, "## Hardware Project Summary", "")
	}
	lines = append(lines, ctx.Summary, "")
	if strings.TrimSpace(ctx.DocumentationContext) != "" {
		lines = append(lines, "### Hardware Documentation", ctx.DocumentationContext, "")
	}
	lines = appendFileSection(lines, "### Firmware Files", ctx.FirmwareFiles)
	lines = appendFileSection(lines, "### PCB Design Files", ctx.PCBFiles)
	lines = appendFileSection(lines, "### Schematic Files", ctx.Schematics)
	lines = appendFileSection(lines, "### Test Results", ctx.TestResults)
	return strings.Join(lines, "\n")
}

func appendFileSection(lines []string, title string, files []string) []string {
	if len(files) == 0 {
		return lines
	}
	lines = append(lines, title)
	limit := min(len(files), MaxListedFiles)
	for _, file := range files[:limit] {
		lines = append(lines, "- "+file)
	}
	if len(files) > MaxListedFiles {
		lines = append(lines, fmt.Sprintf("... and %d more", len(files)-MaxListedFiles))
	}
	return append(lines, "")
}

func hasContent(ctx HardwareContext) bool {
	return strings.TrimSpace(ctx.DocumentationContext) != "" ||
		len(ctx.FirmwareFiles) > 0 ||
		len(ctx.PCBFiles) > 0 ||
		len(ctx.Schematics) > 0 ||
		len(ctx.TestResults) > 0
}

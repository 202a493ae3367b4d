package types

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatFieldsTable renders fields as a markdown table. An empty list renders as "none".
func FormatFieldsTable(fields []Field) (string, error) {
	if len(fields) == 0 {
		return "none", nil
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, field := range fields {
		if err := table.Append(field.FieldName, field.Value()); err != nil {
			return "", fmt.Errorf("append field row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("render fields table: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func FormatField(field Field) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- Name: %s\n", field.FieldName))
	if field.FieldDescription != "" {
		sb.WriteString(fmt.Sprintf("- Description: %s\n", field.FieldDescription))
	}
	inputType := field.FieldConfiguration.InputType
	if inputType == "" {
		inputType = InputText
	}
	sb.WriteString(fmt.Sprintf("- Input type: %s\n", inputType))
	if len(field.FieldConfiguration.Options) > 0 {
		sb.WriteString(fmt.Sprintf("- Options: %s\n", strings.Join(field.FieldConfiguration.Options, ", ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatTranscript(transcript []TranscriptEntry) string {
	lines := make([]string, 0, len(transcript))
	for _, entry := range transcript {
		lines = append(lines, fmt.Sprintf("%s: %s", entry.Role, entry.Content))
	}
	return strings.Join(lines, "\n")
}

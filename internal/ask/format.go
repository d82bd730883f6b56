package ask

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/olgasafonova/smw-ask-mcp-server/smw"
)

// Output formats
const (
	FormatRecords = "records"
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatYAML    = "yaml"
	FormatTable   = "table"
)

// DefaultEntityName wraps the record list in JSON and YAML output
const DefaultEntityName = "data"

// CSVSeparator separates CSV columns
const CSVSeparator = ';'

// Format renders a result set as text. JSON and YAML wrap the records in an
// object keyed by entityName; CSV and table output follow the column order.
func Format(rs *smw.ResultSet, format, entityName string) (string, error) {
	if entityName == "" {
		entityName = DefaultEntityName
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		return formatJSON(rs, entityName)
	case FormatYAML:
		return formatYAML(rs, entityName)
	case FormatCSV:
		return formatCSV(rs)
	case FormatTable:
		return formatTable(rs), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// PlainRecords converts records into plain Go data for encoders
func PlainRecords(rs *smw.ResultSet) []map[string]interface{} {
	records := rs.Records()
	out := make([]map[string]interface{}, len(records))
	for i, r := range records {
		out[i] = r.Plain()
	}
	return out
}

func formatJSON(rs *smw.ResultSet, entityName string) (string, error) {
	data, err := json.MarshalIndent(map[string][]smw.Record{entityName: rs.Records()}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return string(data) + "\n", nil
}

func formatYAML(rs *smw.ResultSet, entityName string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]smw.Record{entityName: rs.Records()}); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

func formatCSV(rs *smw.ResultSet) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = CSVSeparator

	columns := rs.Columns()
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows(rs, columns) {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.String(), nil
}

func formatTable(rs *smw.ResultSet) string {
	columns := rs.Columns()
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Rows(rows(rs, columns)...)

	return tbl.Render() + "\n"
}

// rows lays the records out as string cells in column order
func rows(rs *smw.ResultSet, columns []string) [][]string {
	records := rs.Records()
	out := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = cellText(r[c])
		}
		out[i] = row
	}
	return out
}

// cellText joins multi-valued cells with ", "
func cellText(v smw.Value) string {
	items, ok := v.List()
	if !ok {
		return v.String()
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

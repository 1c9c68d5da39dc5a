package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
)

var columns = map[models.Collection][]string{
	models.Expenses:   {"id", "description", "amount", "currency", "category_id", "account_id", "spent_at", "receipt_key"},
	models.Accounts:   {"id", "name", "kind", "balance", "currency"},
	models.Categories: {"id", "name", "color", "parent_id"},
	models.Budgets:    {"id", "category_id", "limit", "period"},
	models.Goals:      {"id", "name", "target_amount", "saved_amount", "deadline"},
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func renderRecords(w io.Writer, col models.Collection, records []map[string]any) error {
	cols := columns[col]
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(r[c])
		}
		rows = append(rows, row)
	}
	return renderTable(w, cols, rows)
}

func renderQueue(w io.Writer, items []models.SyncQueueItem) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		state := "pending"
		if it.Parked() {
			state = "stuck"
		}
		rows = append(rows, []string{
			it.ID, string(it.Type), it.Endpoint,
			strconv.Itoa(it.RetryCount), state, it.LastError,
		})
	}
	return renderTable(w, []string{"id", "type", "endpoint", "retries", "state", "last_error"}, rows)
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

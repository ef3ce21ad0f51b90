package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printList печатает список таблицей или JSON; пустой список дает одну строку
func (c *Cli) printList(v any, noun string, headers []string, rows [][]string) error {
	if c.jsonOut {
		return c.printJSON(v)
	}
	if len(rows) == 0 {
		c.io.Printf("No %s found.\n", noun)
		return nil
	}
	c.printTable(headers, rows)
	return nil
}

func (c *Cli) printItem(v any, headers []string, rows [][]string) error {
	if c.jsonOut {
		return c.printJSON(v)
	}
	c.printTable(headers, rows)
	return nil
}

func (c *Cli) printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	c.io.Println(t.Render())
}

func (c *Cli) printJSON(v any) error {
	enc := json.NewEncoder(c.io)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

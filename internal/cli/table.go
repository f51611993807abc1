package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
	alignCenter
)

func (a columnAlignment) text() text.Align {
	switch a {
	case alignRight:
		return text.AlignRight
	case alignCenter:
		return text.AlignCenter
	default:
		return text.AlignLeft
	}
}

// tableSpec - содержимое таблицы для вывода.
type tableSpec struct {
	headers []string
	rows    [][]string
	aligns  []columnAlignment

	// footer - строка итогов (пустая - без итогов).
	footer []string
}

// renderTable рисует таблицу с закруглёнными рамками.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return tableSpec{headers: headers, rows: rows, aligns: aligns}.render()
}

// render рисует таблицу. Короткие строки дополняются пустыми ячейками.
func (s tableSpec) render() string {
	columns := len(s.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(s.headers, columns))
	for _, row := range s.rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(s.footer) > 0 {
		tw.AppendFooter(toRow(s.footer, columns))
	}

	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		align := alignLeft
		if i < len(s.aligns) {
			align = s.aligns[i]
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align.text(),
			AlignFooter: align.text(),
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

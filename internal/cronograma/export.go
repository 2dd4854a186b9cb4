package cronograma

import (
	"fmt"
	"io"

	"manutencao-predial/portal-backend/internal/reports/export"
)

var exportColumns = []string{"Ordem", "Atividade", "Início", "Término", "Status", "Observações"}

// Light row tints per status (hex without '#')
var rowFills = map[Status]string{
	StatusPending:    "FEF3C7",
	StatusInProgress: "DBEAFE",
	StatusDone:       "DCFCE7",
}

func exportRow(item Item) []interface{} {
	return []interface{}{
		item.Order,
		item.Activity,
		formatDate(item.StartDate),
		formatDate(item.EndDate),
		item.Status.Label(),
		item.Observations,
	}
}

// ExportXLSX writes items as a single-sheet workbook, one tinted row per item
func ExportXLSX(w io.Writer, items []Item) error {
	opts := export.DefaultExcelOptions()
	opts.SheetName = "Cronograma"
	x, err := export.NewExcelExporter(opts)
	if err != nil {
		return err
	}
	defer x.Close()

	if err := x.WriteHeader(exportColumns); err != nil {
		return err
	}
	sorted := append([]Item(nil), items...)
	sortByOrder(sorted)
	for _, item := range sorted {
		if err := x.WriteRow(exportRow(item), rowFills[item.Status]); err != nil {
			return err
		}
	}
	if err := x.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportCSV writes items as semicolon separated text
func ExportCSV(w io.Writer, items []Item) error {
	c, err := export.NewCSVExporter(w, export.DefaultCSVOptions())
	if err != nil {
		return err
	}
	if err := c.WriteHeader(exportColumns); err != nil {
		return err
	}
	sorted := append([]Item(nil), items...)
	sortByOrder(sorted)
	rows := make([][]interface{}, len(sorted))
	for i, item := range sorted {
		rows[i] = exportRow(item)
	}
	if err := c.WriteRows(rows); err != nil {
		return err
	}
	return c.Flush()
}

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports tabular data to a single XLSX sheet
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
	widths  map[int]float64
	nextRow int
	styles  map[string]int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string            `json:"sheet_name"`
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig `json:"data_style,omitempty"`
	AutoWidth    bool              `json:"auto_width"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
	WrapText  bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Relatório",
		FreezeHeader: true,
		AutoFilter:   true,
		AutoWidth:    true,
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "1F4E79",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  11,
			Alignment: "left",
			Border:    true,
			WrapText:  true,
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) (*ExcelExporter, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", options.SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	return &ExcelExporter{
		file:    file,
		options: options,
		widths:  make(map[int]float64),
		nextRow: 1,
		styles:  make(map[string]int),
	}, nil
}

// WriteHeader writes the header row with styling
func (e *ExcelExporter) WriteHeader(columns []string) error {
	sheet := e.options.SheetName
	styleID, err := e.style("header", e.options.HeaderStyle)
	if err != nil {
		return err
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, e.nextRow)
		if err := e.file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		if styleID > 0 {
			_ = e.file.SetCellStyle(sheet, cell, cell, styleID)
		}
		e.track(i, col)
	}

	if e.options.FreezeHeader {
		_ = e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	if e.options.AutoFilter && len(columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = e.file.AutoFilter(sheet, "A1:"+last, nil)
	}

	e.nextRow++
	return nil
}

// WriteRow writes one data row. fill, when set, overrides the data style's
// background color for the whole row (hex without '#').
func (e *ExcelExporter) WriteRow(values []interface{}, fill string) error {
	sheet := e.options.SheetName

	base := e.options.DataStyle
	key := "data"
	if fill != "" {
		cfg := ExcelStyleConfig{}
		if base != nil {
			cfg = *base
		}
		cfg.FillColor = fill
		base = &cfg
		key = "data:" + fill
	}
	styleID, err := e.style(key, base)
	if err != nil {
		return err
	}

	for i, val := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, e.nextRow)
		if err := e.setCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("failed to set cell value: %w", err)
		}
		if styleID > 0 {
			_ = e.file.SetCellStyle(sheet, cell, cell, styleID)
		}
		e.track(i, val)
	}

	e.nextRow++
	return nil
}

// WriteTo applies column widths and writes the workbook
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	if e.options.AutoWidth {
		for idx, width := range e.widths {
			col, _ := excelize.ColumnNumberToName(idx + 1)
			_ = e.file.SetColWidth(e.options.SheetName, col, col, min(max(width, 10), 60))
		}
	}
	return e.file.Write(w)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

func (e *ExcelExporter) track(idx int, val interface{}) {
	if !e.options.AutoWidth || val == nil {
		return
	}
	// rough estimate: one unit per rune plus padding
	width := float64(len([]rune(fmt.Sprintf("%v", val)))) * 1.2
	if width > e.widths[idx] {
		e.widths[idx] = width
	}
}

// style creates each distinct style once per workbook
func (e *ExcelExporter) style(key string, config *ExcelStyleConfig) (int, error) {
	if config == nil {
		return 0, nil
	}
	if id, ok := e.styles[key]; ok {
		return id, nil
	}

	style := &excelize.Style{
		Font: &excelize.Font{Bold: config.FontBold, Size: float64(config.FontSize), Color: config.FontColor},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{config.FillColor}}
	}
	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{Horizontal: config.Alignment, Vertical: "center", WrapText: config.WrapText}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "BFBFBF", Style: 1},
			{Type: "right", Color: "BFBFBF", Style: 1},
			{Type: "top", Color: "BFBFBF", Style: 1},
			{Type: "bottom", Color: "BFBFBF", Style: 1},
		}
	}

	id, err := e.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s style: %w", key, err)
	}
	e.styles[key] = id
	return id, nil
}

func (e *ExcelExporter) setCellValue(sheet, cell string, val interface{}) error {
	switch v := val.(type) {
	case nil:
		return e.file.SetCellValue(sheet, cell, "")
	case time.Time:
		if v.IsZero() {
			return e.file.SetCellValue(sheet, cell, "")
		}
		// stored as text so the sheet style keeps its borders and fill
		return e.file.SetCellValue(sheet, cell, v.Format("02/01/2006"))
	default:
		return e.file.SetCellValue(sheet, cell, v)
	}
}

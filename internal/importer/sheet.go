package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromName dosya uzantısından biçimi çıkarır; bilinmeyen uzantılar xlsx sayılır.
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// ReadTable ilk sayfanın (veya CSV'nin) satırlarını döner. İlk satır başlıktır ve atlanır.
// Excel hücreleri ham değerleriyle okunur; tarih hücreleri seri numarası olarak gelir.
func ReadTable(r io.Reader, format Format) ([][]string, error) {
	var rows [][]string
	switch format {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		all, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("CSV okunamadı: %w", err)
		}
		rows = all
	default:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("Excel dosyası açılamadı: %w", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel dosyasında sayfa yok")
		}
		rows, err = f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("Excel satırları okunamadı: %w", err)
		}
	}

	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// WriteTable başlık ve satırları verilen biçimde yazar.
func WriteTable(w io.Writer, format Format, sheet string, header []string, rows [][]any) error {
	if format == FormatCSV {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		rec := make([]string, len(header))
		for _, row := range rows {
			for i, v := range row {
				if v == nil {
					rec[i] = ""
					continue
				}
				rec[i] = fmt.Sprint(v)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cellName, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

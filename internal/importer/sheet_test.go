package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromName("stok.CSV"))
	assert.Equal(t, FormatXLSX, FormatFromName("stok.xlsx"))
	assert.Equal(t, FormatXLSX, FormatFromName("stok"))
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, FormatXLSX, "products", []string{"part_code", "quantity", "order_placed"}, [][]any{
		{"X1", 5, true},
		{"X2", 0, false},
	})
	require.NoError(t, err)

	rows, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "X1", rows[0][0])
	assert.Equal(t, "5", rows[0][1])

	b, err := parseBool("order_placed", rows[0][2])
	require.NoError(t, err)
	assert.True(t, b)
}

func TestXLSXDateCellsReadAsSerial(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"serial_number", "date"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "D1"))
	require.NoError(t, f.SetCellFloat("Sheet1", "B2", 45306, 0, 64))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	d, err := parseDateCell("date", rows[0][1])
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", d.Format("2006-01-02"))
}

func TestReadCSVSkipsHeaderOnly(t *testing.T) {
	rows, err := ReadTable(strings.NewReader("a,b\n"), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCellParsers(t *testing.T) {
	v, err := parseInt("quantity", "5.0")
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = parseInt("quantity", "5.5")
	assert.Error(t, err)

	_, err = parseNonNegative("quantity", "-1")
	assert.Error(t, err)

	p, err := parsePrice("unit_price", "12,456")
	require.NoError(t, err)
	assert.Equal(t, 12.46, p)

	for _, s := range []string{"1", "TRUE", "Evet", "x"} {
		b, err := parseBool("f", s)
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	_, err = parseBool("f", "belki")
	assert.Error(t, err)
}

func TestParseIntRejectsOutOfRange(t *testing.T) {
	for _, s := range []string{"1e30", "-1e30", "3000000000", "Inf", "NaN"} {
		_, err := parseInt("quantity", s)
		assert.Error(t, err, s)
	}

	v, err := parseInt("quantity", "2147483647")
	require.NoError(t, err)
	assert.Equal(t, 2147483647, v)

	v, err = parseInt("quantity", "1e3")
	require.NoError(t, err)
	assert.Equal(t, 1000, v)
}

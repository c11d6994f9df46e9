package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVFrom(t *testing.T) {
	csvData := "\uFEFFSKU_ID,Stock_Actual,Categoria\n" +
		"A1,10,Hogar\n" +
		"B2,-3,Electro\n" +
		"C3,,Hogar\n" +
		"D4,7\n" // short record pads with null

	tbl, err := ReadCSVFrom("inventory", strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, []string{"SKU_ID", "Stock_Actual", "Categoria"}, tbl.Columns(), "BOM must be stripped from the first header")
	assert.Equal(t, 4, tbl.NumRows())

	// Numeric inference.
	stock, ok := tbl.Row(0).Float("Stock_Actual")
	require.True(t, ok)
	assert.Equal(t, 10.0, stock)
	assert.IsType(t, float64(0), tbl.Value(1, "Stock_Actual"))

	// Blank cells become null.
	assert.Nil(t, tbl.Value(2, "Stock_Actual"))
	assert.Nil(t, tbl.Value(3, "Categoria"))

	// Text stays text.
	assert.Equal(t, "Hogar", tbl.Value(0, "Categoria"))
}

func TestReadCSVFrom_Empty(t *testing.T) {
	_, err := ReadCSVFrom("inventory", strings.NewReader(""))
	assert.Error(t, err)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("inventory", "inventario.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestInferCell(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "blank", in: "   ", want: nil},
		{name: "nan literal", in: "NaN", want: nil},
		{name: "null literal", in: "null", want: nil},
		{name: "integer", in: "12", want: 12.0},
		{name: "decimal", in: "3.5", want: 3.5},
		{name: "negative", in: "-3", want: -3.0},
		{name: "text", in: "Hogar", want: "Hogar"},
		{name: "date stays string at load", in: "2024-03-01", want: "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferCell(tt.in))
		})
	}
}

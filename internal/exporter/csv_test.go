package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
)

// setupTestEnv returns a writer whose exports directory lives in a
// per-test temp dir.
func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()

	tempDir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{
		ExportsDir: filepath.Join(tempDir, "exports"),
	})

	return writer, tempDir
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"SKU_ID", "Stock_Actual", "Categoria"},
				Records: [][]string{
					{"A1", "10", "ELECTRONICA"},
					{"B2", "5", "HOGAR"},
				},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 3) // header + 2 records
				assert.Equal(t, "SKU_ID,Stock_Actual,Categoria", lines[0])
				assert.Equal(t, "A1,10,ELECTRONICA", lines[1])
				assert.Equal(t, "B2,5,HOGAR", lines[2])
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"Estado SKU", "Cantidad"},
				Records:   [][]string{{"VALID", "120"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))

				contentWithoutBOM := content[3:]
				lines := strings.Split(strings.TrimSpace(string(contentWithoutBOM)), "\n")
				assert.Equal(t, "Estado SKU,Cantidad", lines[0])
				assert.Equal(t, "VALID,120", lines[1])
			},
		},
		{
			name:     "write without headers",
			filePath: "test_no_headers.csv",
			options: WriteOptions{
				Records: [][]string{
					{"Data1", "Data2"},
					{"Data3", "Data4"},
				},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 2) // only records, no headers
				assert.Equal(t, "Data1,Data2", lines[0])
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options: WriteOptions{
				Headers: []string{"Col1", "Col2"},
				Records: [][]string{},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 1) // only headers
				assert.Equal(t, "Col1,Col2", lines[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)

			fullPath := filepath.Join(tempDir, "exports", tt.filePath)
			tt.validate(t, fullPath)
		})
	}
}

func TestCSVWriter_WriteSimpleCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	headers := []string{"sku_status", "ingreso"}
	records := [][]string{
		{"VALID", "1520.40"},
		{"PHANTOM", "310.00"},
	}

	err := writer.WriteSimpleCSV("simple_test.csv", headers, records)
	require.NoError(t, err)

	filePath := filepath.Join(tempDir, "exports", "simple_test.csv")
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)

	// WriteSimpleCSV always writes the BOM.
	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))

	contentWithoutBOM := content[3:]
	lines := strings.Split(strings.TrimSpace(string(contentWithoutBOM)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "sku_status,ingreso", lines[0])
	assert.Equal(t, "VALID,1520.40", lines[1])
	assert.Equal(t, "PHANTOM,310.00", lines[2])
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	filePath := "append_test.csv"
	fullPath := filepath.Join(tempDir, "exports", filePath)

	err := writer.WriteSimpleCSV(filePath, []string{"Col1", "Col2"}, [][]string{
		{"Initial1", "Initial2"},
	})
	require.NoError(t, err)

	err = writer.AppendToCSV(filePath, [][]string{
		{"Appended1", "Appended2"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(fullPath)
	require.NoError(t, err)

	contentWithoutBOM := content[3:]
	lines := strings.Split(strings.TrimSpace(string(contentWithoutBOM)), "\n")
	assert.Len(t, lines, 3) // header + initial + appended
	assert.Equal(t, "Col1,Col2", lines[0])
	assert.Equal(t, "Initial1,Initial2", lines[1])
	assert.Equal(t, "Appended1,Appended2", lines[2])
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	abs := filepath.Join(tempDir, "elsewhere", "file.csv")
	assert.Equal(t, abs, writer.resolvePath(abs))

	rel := writer.resolvePath("report.csv")
	assert.Equal(t, filepath.Join(tempDir, "exports", "report.csv"), rel)
}

func TestCSVWriter_SpecialCharacters(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	headers := []string{"Categoria", "Ciudad_Destino", "Notas"}
	records := [][]string{
		{"Electrónica", "Bogotá", "Notas con\nsaltos de línea"},
		{"Señalización", "Medellín", "Texto,con,comas"},
		{"Hogar \"premium\"", "Cali", "ñáéíóú"},
	}

	err := writer.WriteSimpleCSV("special_chars.csv", headers, records)
	require.NoError(t, err)

	// Parse back to verify CSV escaping survived the round trip.
	filePath := filepath.Join(tempDir, "exports", "special_chars.csv")
	file, err := os.Open(filePath)
	require.NoError(t, err)
	defer file.Close()

	bom := make([]byte, 3)
	_, err = file.Read(bom)
	require.NoError(t, err)

	reader := csv.NewReader(file)
	allRecords, err := reader.ReadAll()
	require.NoError(t, err)

	require.Len(t, allRecords, 4)
	assert.Equal(t, headers, allRecords[0])
	assert.Equal(t, "Electrónica", allRecords[1][0])
	assert.Equal(t, "Notas con\nsaltos de línea", allRecords[1][2])
	assert.Equal(t, "Texto,con,comas", allRecords[2][2])
	assert.Equal(t, "Hogar \"premium\"", allRecords[3][0])
}

func TestCSVWriter_StreamWriter(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream_test.csv", []string{"SKU_ID", "ingreso"})
	require.NoError(t, err)

	require.NoError(t, stream.WriteRecord([]string{"A1", "20.00"}))
	require.NoError(t, stream.WriteRecord([]string{"C3", "50.00"}))
	require.NoError(t, stream.Close())

	content, err := os.ReadFile(filepath.Join(tempDir, "exports", "stream_test.csv"))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))

	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "SKU_ID,ingreso", lines[0])
	assert.Equal(t, "A1,20.00", lines[1])
	assert.Equal(t, "C3,50.00", lines[2])
}

func TestCSVWriter_StreamWriterCreatesDirectories(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	nested := filepath.Join("run-1", "nested", "out.csv")
	stream, err := writer.CreateStreamWriter(nested, []string{"a"})
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	assert.FileExists(t, filepath.Join(tempDir, "exports", "run-1", "nested", "out.csv"))
}

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"supplypulse/pkg/contracts/domain"
)

// DatasetFixtures writes small raw dataset files for tests. The
// fixtures carry the same dirt the production files do (duplicates,
// impossible ages, mixed satisfaction scales, phantom SKUs) so
// pipeline-level tests exercise the cleaning rules without shipping
// real customer data.
type DatasetFixtures struct {
	Dir string
}

// NewDatasetFixtures creates a fixtures manager rooted in a temp dir.
func NewDatasetFixtures(t *testing.T) *DatasetFixtures {
	t.Helper()
	return &DatasetFixtures{Dir: t.TempDir()}
}

// WriteFile writes raw content under the fixtures dir and returns the path.
func (f *DatasetFixtures) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// FeedbackCSV returns raw feedback content. Rows F2/F2 duplicate,
// F4 has an impossible age, and the satisfaction column mixes the
// 0-10 and 0-100 capture scales.
func FeedbackCSV() string {
	return "ID_Feedback,ID_Transaccion,Edad_Cliente,Rating_Producto,Satisfaccion_NPS,Fecha_Feedback\n" +
		"F1,T1,34,4,8,2025-05-11\n" +
		"F2,T2,28,5,90,2025-05-12\n" +
		"F2,T2,28,5,90,2025-05-12\n" +
		"F3,T3,45,3,-7,2025-05-13\n" +
		"F4,T4,200,2,6,2025-05-14\n" +
		"F5,T5,52,4,,2025-05-15\n"
}

// InventoryCSV returns raw inventory content. SKU B2 misses its unit
// cost, C3 carries negative stock.
func InventoryCSV() string {
	return "SKU_ID,Categoria,Almacen,Stock_Actual,Punto_Reorden,Costo_Unitario,Lead_Time_Dias,Fecha_Ultima_Revision\n" +
		"A1,ELECTRONICA,NORTE,120,30,4.50,3,2025-03-01\n" +
		"B2,HOGAR,SUR,80,20,,5,2025-02-15\n" +
		"C3,DEPORTES,NORTE,-4,10,7.25,4,2025-04-10\n" +
		"D4,ELECTRONICA,CENTRO,55,15,12.00,6,2025-01-20\n"
}

// TransactionsCSV returns raw transactions content. T9 references a
// SKU absent from the inventory fixture, T10 reports an implausible
// delivery time.
func TransactionsCSV() string {
	return "ID_Transaccion,SKU_ID,Cantidad_Vendida,Precio_Venta_Final,Costo_Envio,Tiempo_Entrega_Dias,Fecha_Venta,Ciudad_Destino,Ticket_Soporte\n" +
		"T1,A1,2,10.00,1.50,4,2025-05-10,BOG,no\n" +
		"T2,B2,1,25.00,2.00,5,2025-05-11,MED,no\n" +
		"T3,D4,3,40.00,3.00,7,2025-05-12,CALI,si\n" +
		"T9,SKU-FANTASMA,1,50.00,2.50,6,2025-05-13,BOG,no\n" +
		"T10,A1,2,10.00,1.50,999,2025-05-14,MED,no\n"
}

// WriteFeedback writes the canonical feedback fixture and returns its path.
func (f *DatasetFixtures) WriteFeedback(t *testing.T) string {
	return f.WriteFile(t, "feedback_clientes_v2.csv", FeedbackCSV())
}

// WriteInventory writes the canonical inventory fixture and returns its path.
func (f *DatasetFixtures) WriteInventory(t *testing.T) string {
	return f.WriteFile(t, "inventario_central_v2.csv", InventoryCSV())
}

// WriteTransactions writes the canonical transactions fixture and returns its path.
func (f *DatasetFixtures) WriteTransactions(t *testing.T) string {
	return f.WriteFile(t, "transacciones_logisticas_v2.csv", TransactionsCSV())
}

// WriteAll writes all three datasets and returns their paths keyed by kind.
func (f *DatasetFixtures) WriteAll(t *testing.T) map[domain.DatasetKind]string {
	t.Helper()
	return map[domain.DatasetKind]string{
		domain.DatasetFeedback:     f.WriteFeedback(t),
		domain.DatasetInventory:    f.WriteInventory(t),
		domain.DatasetTransactions: f.WriteTransactions(t),
	}
}

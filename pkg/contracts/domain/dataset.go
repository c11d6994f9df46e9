package domain

import "strings"

// DatasetKind identifies one of the three tabular inputs an analysis
// run ingests.
type DatasetKind string

const (
	DatasetFeedback     DatasetKind = "feedback"
	DatasetInventory    DatasetKind = "inventory"
	DatasetTransactions DatasetKind = "transactions"
)

// AllDatasetKinds lists the dataset kinds in ingestion order.
var AllDatasetKinds = []DatasetKind{DatasetFeedback, DatasetInventory, DatasetTransactions}

// Source column names. Headers arrive in the customer's Spanish naming
// and are preserved exactly; fields derived by this system use English
// snake_case instead.
const (
	// Feedback columns
	ColFeedbackID    = "ID_Feedback"
	ColTransactionID = "ID_Transaccion"
	ColCustomerAge   = "Edad_Cliente"
	ColProductRating = "Rating_Producto"
	ColSatisfaction  = "Satisfaccion_NPS"
	ColFeedbackDate  = "Fecha_Feedback"

	// Inventory columns
	ColSKU            = "SKU_ID"
	ColCategory       = "Categoria"
	ColWarehouse      = "Almacen"
	ColStock          = "Stock_Actual"
	ColReorderPoint   = "Punto_Reorden"
	ColUnitCost       = "Costo_Unitario"
	ColLeadTimeDays   = "Lead_Time_Dias"
	ColLastReviewDate = "Fecha_Ultima_Revision"

	// Transactions columns
	ColQuantity      = "Cantidad_Vendida"
	ColUnitPrice     = "Precio_Venta_Final"
	ColShippingCost  = "Costo_Envio"
	ColDeliveryDays  = "Tiempo_Entrega_Dias"
	ColSaleDate      = "Fecha_Venta"
	ColCity          = "Ciudad_Destino"
	ColSupportTicket = "Ticket_Soporte"

	// ColPhantomTag is added by the transactions cleaner and preserved
	// for downstream reconciliation and audit.
	ColPhantomTag = "es_fantasma"
)

// CanonicalFileName returns the file name each dataset is delivered
// under when the caller points a run at a data directory instead of
// naming files explicitly.
func CanonicalFileName(kind DatasetKind) string {
	switch kind {
	case DatasetFeedback:
		return "feedback_clientes_v2.csv"
	case DatasetInventory:
		return "inventario_central_v2.csv"
	case DatasetTransactions:
		return "transacciones_logisticas_v2.csv"
	default:
		return ""
	}
}

// dateColumnMarkers are the substrings that mark a column as holding
// dates, covering both the customer's Spanish headers and English ones.
var dateColumnMarkers = []string{"fecha", "date", "revision", "review"}

// IsDateColumn reports whether a column name marks a date column.
// Matching is case-insensitive.
func IsDateColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range dateColumnMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// RequiredColumns returns the columns whose absence marks the dataset
// structurally INVALID. Transactions carry no required set; structural
// validity there is judged rule by rule.
func RequiredColumns(kind DatasetKind) []string {
	switch kind {
	case DatasetFeedback:
		return []string{ColCustomerAge, ColProductRating, ColSatisfaction}
	case DatasetInventory:
		return []string{ColSKU, ColCategory, ColStock, ColReorderPoint}
	default:
		return nil
	}
}

// DatasetStatus is the per-dataset outcome of ingestion and health
// checking within a run.
type DatasetStatus string

const (
	// DatasetOK means the dataset loaded and all required columns are present.
	DatasetOK DatasetStatus = "ok"
	// DatasetInvalid means the dataset loaded but required columns are missing.
	DatasetInvalid DatasetStatus = "invalid"
	// DatasetMissing means no file was provided or it could not be read.
	DatasetMissing DatasetStatus = "missing"
)

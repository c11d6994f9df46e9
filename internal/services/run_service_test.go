package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/operations"
	"supplypulse/internal/shared/testutil"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

const (
	feedbackCSV = `ID_Feedback,ID_Transaccion,Edad_Cliente,Rating_Producto,Satisfaccion_NPS,Fecha_Feedback
F1,T1,34,4,8,2024-05-01
F2,T2,41,5,9,2024-05-02
F3,T3,29,3,6,2024-05-03
`
	inventoryCSV = `SKU_ID,Categoria,Almacen,Stock_Actual,Punto_Reorden,Costo_Unitario,Lead_Time_Dias,Fecha_Ultima_Revision
A1,Electronica,Norte,100,20,4.0,10,2024-01-15
B2,Electronica,Sur,50,10,5.0,12,2024-02-20
`
	transactionsCSV = `ID_Transaccion,SKU_ID,Cantidad_Vendida,Precio_Venta_Final,Costo_Envio,Tiempo_Entrega_Dias,Fecha_Venta,Ciudad_Destino,Ticket_Soporte
T1,A1,2,10,1.5,3,2024-05-01,Lima,no
T2,C3,1,50,2.0,5,2024-05-02,Bogota,si
T3,B2,1,20,1.0,4,2024-05-03,Lima,no
`
)

type runHarness struct {
	svc    *RunService
	runner *operations.Runner
	paths  *config.Paths
	base   string
}

func newRunHarness(t *testing.T) *runHarness {
	t.Helper()

	base := t.TempDir()
	paths := config.NewPaths(base)
	logger, _ := testutil.NewTestLogger(t)

	runner := operations.NewRunner(operations.NewRunStore(0), nil, operations.Options{Paths: paths}, logger)
	t.Cleanup(runner.Stop)

	return &runHarness{
		svc:    NewRunService(runner, paths, logger),
		runner: runner,
		paths:  paths,
		base:   base,
	}
}

func (h *runHarness) writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// completedRun executes a full run synchronously and returns its ID.
func (h *runHarness) completedRun(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	req := api.RunStartRequest{Datasets: []api.DatasetPathInput{
		{Kind: "feedback", Path: h.writeDataset(t, dir, "feedback.csv", feedbackCSV)},
		{Kind: "inventory", Path: h.writeDataset(t, dir, "inventory.csv", inventoryCSV)},
		{Kind: "transactions", Path: h.writeDataset(t, dir, "transactions.csv", transactionsCSV)},
	}}

	inputs, err := h.svc.resolveInputs(req)
	require.NoError(t, err)
	run, _, err := h.runner.RunOnce(context.Background(), inputs)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, run.Status)
	return run.ID
}

func TestRunService_StartRun_ExplicitDatasets(t *testing.T) {
	h := newRunHarness(t)
	dir := t.TempDir()

	run, err := h.svc.StartRun(context.Background(), api.RunStartRequest{
		Datasets: []api.DatasetPathInput{
			{Kind: "inventory", Path: h.writeDataset(t, dir, "inventory.csv", inventoryCSV)},
			{Kind: "transactions", Path: h.writeDataset(t, dir, "transactions.csv", transactionsCSV)},
		},
	})
	require.NoError(t, err)
	require.Len(t, run.Inputs, 2)
	assert.Equal(t, domain.DatasetInventory, run.Inputs[0].Kind)

	require.Eventually(t, func() bool {
		got, err := h.svc.GetRun(context.Background(), run.ID)
		return err == nil && got.Status == domain.RunCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunService_StartRun_DataDirFallback(t *testing.T) {
	h := newRunHarness(t)

	dir := t.TempDir()
	h.writeDataset(t, dir, domain.CanonicalFileName(domain.DatasetInventory), inventoryCSV)
	h.writeDataset(t, dir, domain.CanonicalFileName(domain.DatasetTransactions), transactionsCSV)

	run, err := h.svc.StartRun(context.Background(), api.RunStartRequest{DataDir: dir})
	require.NoError(t, err)

	// Only the two delivered files become inputs; feedback is absent.
	require.Len(t, run.Inputs, 2)
	kinds := []domain.DatasetKind{run.Inputs[0].Kind, run.Inputs[1].Kind}
	assert.NotContains(t, kinds, domain.DatasetFeedback)

	require.Eventually(t, func() bool {
		got, err := h.svc.GetRun(context.Background(), run.ID)
		return err == nil && got.Status == domain.RunCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunService_StartRun_ConfiguredFileNames(t *testing.T) {
	h := newRunHarness(t)
	h.svc.SetDatasetFiles(config.DatasetsConfig{InventoryFile: "stock_actual.csv"})

	dir := t.TempDir()
	h.writeDataset(t, dir, "stock_actual.csv", inventoryCSV)
	h.writeDataset(t, dir, domain.CanonicalFileName(domain.DatasetTransactions), transactionsCSV)

	run, err := h.svc.StartRun(context.Background(), api.RunStartRequest{DataDir: dir})
	require.NoError(t, err)

	// The overridden inventory name is honored; transactions still scan
	// under the canonical name because the override left them blank.
	require.Len(t, run.Inputs, 2)
	require.Eventually(t, func() bool {
		got, err := h.svc.GetRun(context.Background(), run.ID)
		return err == nil && got.Status == domain.RunCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunService_StartRun_DefaultsToConfiguredDataDir(t *testing.T) {
	h := newRunHarness(t)
	h.writeDataset(t, h.paths.DataDir, domain.CanonicalFileName(domain.DatasetInventory), inventoryCSV)

	run, err := h.svc.StartRun(context.Background(), api.RunStartRequest{})
	require.NoError(t, err)
	require.Len(t, run.Inputs, 1)
	assert.Equal(t, domain.DatasetInventory, run.Inputs[0].Kind)
}

func TestRunService_StartRun_EmptyDataDir(t *testing.T) {
	h := newRunHarness(t)

	_, err := h.svc.StartRun(context.Background(), api.RunStartRequest{DataDir: t.TempDir()})
	require.ErrorIs(t, err, apierrors.ErrDatasetMissing)
}

func TestRunService_GetRun_NotFound(t *testing.T) {
	h := newRunHarness(t)

	_, err := h.svc.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, apierrors.ErrRunNotFound)
}

func TestRunService_ListRuns(t *testing.T) {
	h := newRunHarness(t)
	store := h.runner.Store()

	now := time.Now().UTC()
	store.Create(&domain.Run{ID: "done-1", Status: domain.RunCompleted, CreatedAt: now.Add(-2 * time.Minute)})
	store.Create(&domain.Run{ID: "failed-1", Status: domain.RunFailed, CreatedAt: now.Add(-time.Minute)})
	store.Create(&domain.Run{ID: "done-2", Status: domain.RunCompleted, CreatedAt: now})

	all, err := h.svc.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "done-2", all[0].ID)

	completed, err := h.svc.ListRuns(context.Background(), "completed", 0)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	limited, err := h.svc.ListRuns(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRunService_Reports_WhileRunning(t *testing.T) {
	h := newRunHarness(t)
	h.runner.Store().Create(&domain.Run{ID: "live", Status: domain.RunRunning, CreatedAt: time.Now().UTC()})

	_, err := h.svc.HealthReports(context.Background(), "live")
	require.ErrorIs(t, err, apierrors.ErrRunInProgress)

	_, err = h.svc.Reconciliation(context.Background(), "live", 0)
	require.ErrorIs(t, err, apierrors.ErrRunInProgress)
}

func TestRunService_Reports_Completed(t *testing.T) {
	h := newRunHarness(t)
	runID := h.completedRun(t)

	health, err := h.svc.HealthReports(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, health, 3)
	assert.Equal(t, domain.HealthOK, health[domain.DatasetInventory].Status)

	logs, err := h.svc.CleaningLogs(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.NotEmpty(t, logs[domain.DatasetTransactions])
}

func TestRunService_Reconciliation_LimitsRecords(t *testing.T) {
	h := newRunHarness(t)
	runID := h.completedRun(t)

	report, err := h.svc.Reconciliation(context.Background(), runID, 2)
	require.NoError(t, err)
	require.NotNil(t, report.Summary)
	assert.Nil(t, report.Partial)
	assert.Equal(t, 3, report.TotalRecords)
	assert.Len(t, report.Records, 2)

	full, err := h.svc.Reconciliation(context.Background(), runID, 0)
	require.NoError(t, err)
	assert.Len(t, full.Records, 3)
}

func TestRunService_Reconciliation_Unavailable(t *testing.T) {
	h := newRunHarness(t)
	dir := t.TempDir()

	req := api.RunStartRequest{Datasets: []api.DatasetPathInput{
		{Kind: "feedback", Path: h.writeDataset(t, dir, "feedback.csv", feedbackCSV)},
	}}
	inputs, err := h.svc.resolveInputs(req)
	require.NoError(t, err)
	run, _, err := h.runner.RunOnce(context.Background(), inputs)
	require.NoError(t, err)

	_, err = h.svc.Reconciliation(context.Background(), run.ID, 0)
	require.ErrorIs(t, err, apierrors.ErrReconcileUnavailable)

	_, err = h.svc.Aggregates(context.Background(), run.ID)
	require.ErrorIs(t, err, apierrors.ErrReconcileUnavailable)
}

func TestRunService_Aggregates(t *testing.T) {
	h := newRunHarness(t)
	runID := h.completedRun(t)

	report, err := h.svc.Aggregates(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, report.RunID)
	assert.NotEmpty(t, report.Warehouses)
	assert.NotEmpty(t, report.Cities)
}

func TestRunService_Aggregates_PartialRunsHaveNone(t *testing.T) {
	h := newRunHarness(t)
	dir := t.TempDir()

	req := api.RunStartRequest{Datasets: []api.DatasetPathInput{
		{Kind: "inventory", Path: h.writeDataset(t, dir, "inventory.csv", inventoryCSV)},
	}}
	inputs, err := h.svc.resolveInputs(req)
	require.NoError(t, err)
	run, _, err := h.runner.RunOnce(context.Background(), inputs)
	require.NoError(t, err)

	report, err := h.svc.Reconciliation(context.Background(), run.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, report.Partial)
	assert.Equal(t, "inventory-only", report.Partial.Mode)
	assert.Zero(t, report.TotalRecords)

	_, err = h.svc.Aggregates(context.Background(), run.ID)
	require.ErrorIs(t, err, apierrors.ErrReconcileUnavailable)
}

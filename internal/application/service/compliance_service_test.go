package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/gstr1-reconciler/internal/domain/workflow"
	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/processor"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var b2bCSV = []byte("gstin,inum,txval,rt\n27AAAAA0000A1Z5,INV1,1000,18\nBAD,INV2,500,5\n")

// registry rejects "BAD" and accepts everything else
var registry = gateway.VerifierFunc(func(ctx context.Context, id string) models.Verdict {
	if id == "BAD" {
		return models.Verdict{Valid: false, Reason: models.ReasonNotFound}
	}
	return models.Verdict{Valid: true, Reason: models.ReasonActive}
})

type mockRunner struct {
	runFunc func(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error)
	opts    processor.RunOptions
}

func (m *mockRunner) Run(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error) {
	m.opts = opts
	return m.runFunc(ctx, files, opts, onProgress)
}

type fixture struct {
	store     *repository.MemoryStore
	artifacts *storage.ArtifactStore
	parties   PartyService
	party     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		artifacts: storage.NewArtifactStore(t.TempDir(), logger),
	}
	f.parties = NewPartyService(f.store, f.artifacts, logger)

	f.party = &models.User{Username: "acme", FullName: "Acme Traders", Role: models.RoleCustomer, CACode: "CA001", GSTIN: "29abcde1234f1z5"}
	require.NoError(t, f.parties.RegisterUser(context.Background(), f.party))
	return f
}

func (f *fixture) upload(t *testing.T, name string, content []byte) *models.UploadedFile {
	t.Helper()
	file, err := f.parties.UploadFile(context.Background(), f.party.ID, UploadRequest{FileName: name, Content: content, FinancialYear: "2024-25", Month: "April"})
	require.NoError(t, err)
	return file
}

func TestComplianceService_ProcessParty_Reconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "b2b.csv", b2bCSV)
	f.upload(t, "notes.txt", []byte("ignore me"))

	runner := processor.NewProcessor(registry, processor.Config{VerifyConcurrency: 2, CacheVerdicts: true}, zap.NewNop())
	svc := NewComplianceService(f.store, runner, f.artifacts, Defaults{ProductName: "Ledgerly"}, zap.NewNop())

	outcome, err := svc.ProcessParty(ctx, f.party.ID, ProcessRequest{Reconcile: true})
	require.NoError(t, err)

	assert.Equal(t, "Ledgerly_GSTR1_Acme Traders_RECONCILED.xlsx", outcome.Workbook)
	assert.Equal(t, "Error_List_Acme Traders.xlsx", outcome.ErrorList)
	assert.Len(t, outcome.FileIDs, 2)
	assert.Equal(t, []string{"notes.txt"}, outcome.FilesSkipped)
	assert.Equal(t, 1, outcome.ErrorCount)
	assert.Equal(t, "500", outcome.TotalTaxableShifted.String())
	require.NotEmpty(t, outcome.Progress)
	assert.Equal(t, models.ProgressSuccess, outcome.Progress[len(outcome.Progress)-1].Status)

	names, err := f.parties.ListArtifacts(ctx, f.party.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{outcome.Workbook, outcome.ErrorList}, names)

	data, err := f.parties.OpenArtifact(ctx, f.party.ID, outcome.Workbook)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	files, err := f.parties.ListFiles(ctx, f.party.ID, models.FileStatusCompleted)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, file := range files {
		assert.Equal(t, "/api/v1/parties/"+f.party.ID+"/artifacts/Ledgerly_GSTR1_Acme%20Traders_RECONCILED.xlsx", file.ProcessedFileURL)
	}

	logs, err := f.parties.ListLogs(ctx, f.party.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionReconcile, logs[0].Action)
	assert.Equal(t, BatchLogFileName, logs[0].FileName)
	assert.Equal(t, "Success", logs[0].Result)
	assert.Equal(t, "Completed", logs[0].Status)
	assert.Equal(t, "CA001", logs[0].CACode)
	assert.Equal(t, 1, logs[0].ErrorCount)
	assert.Equal(t, "500", logs[0].MigratedAmount)

	_, err = svc.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	assert.ErrorIs(t, err, ErrNoPendingFiles, "completed files are not processed twice")

	requeued, err := f.parties.RequeueFile(ctx, f.party.ID, outcome.FileIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusPending, requeued.Status)

	_, err = f.parties.RequeueFile(ctx, f.party.ID, outcome.FileIDs[0])
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	_, err = f.parties.RequeueFile(ctx, f.party.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	again, err := svc.ProcessParty(ctx, f.party.ID, ProcessRequest{Reconcile: true})
	require.NoError(t, err)
	assert.Len(t, again.FileIDs, 1)
}

func TestComplianceService_ProcessParty_PassesPartyDetails(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "docs.csv", []byte("Nature of Document,Sr. No. From,Sr. No. To,Total Number,Cancelled\nInvoices,1,100,100,15\n"))

	runner := &mockRunner{runFunc: func(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error) {
		require.Len(t, files, 1)
		assert.Equal(t, "docs.csv", files[0].Name)
		return &processor.RunResult{Workbook: processor.Artifact{Name: processor.WorkbookName(opts), Data: []byte("xlsx")}, FilesSkipped: []string{}}, nil
	}}
	svc := NewComplianceService(f.store, runner, f.artifacts, Defaults{ProductName: "Speqta", Dialect: "tally"}, zap.NewNop())

	outcome, err := svc.ProcessParty(context.Background(), f.party.ID, ProcessRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Acme Traders", runner.opts.PartyName)
	assert.Equal(t, "29ABCDE1234F1Z5", runner.opts.PartyGSTIN, "GSTIN is normalized at registration")
	assert.Equal(t, "tally", string(runner.opts.Dialect))
	assert.False(t, runner.opts.Reconcile)
	assert.Equal(t, "Speqta_GSTR1_Acme Traders.xlsx", outcome.Workbook)
	assert.Empty(t, outcome.ErrorList)

	logs, err := f.store.GetLogs(context.Background(), models.LogFilter{CustomerID: f.party.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionGenerate, logs[0].Action)
	assert.Equal(t, "0", logs[0].MigratedAmount)
}

func TestComplianceService_ProcessParty_RunFailure(t *testing.T) {
	f := newFixture(t)
	file := f.upload(t, "b2b.csv", b2bCSV)

	runErr := errors.New("template unreadable")
	runner := &mockRunner{runFunc: func(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error) {
		onProgress(models.ProcessingProgress{Percent: 10, Message: "Loading template...", Status: models.ProgressInfo})
		onProgress(models.ProcessingProgress{Percent: 0, Message: runErr.Error(), Status: models.ProgressError})
		return nil, runErr
	}}
	svc := NewComplianceService(f.store, runner, f.artifacts, Defaults{}, zap.NewNop())

	outcome, err := svc.ProcessParty(context.Background(), f.party.ID, ProcessRequest{})
	require.ErrorIs(t, err, runErr)
	require.NotNil(t, outcome)
	require.Len(t, outcome.Progress, 2)
	assert.Equal(t, models.ProgressError, outcome.Progress[1].Status)
	assert.Empty(t, outcome.Workbook)

	files, err := f.store.GetFiles(context.Background(), models.FileFilter{CustomerID: f.party.ID})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)
	assert.Equal(t, models.FileStatusError, files[0].Status)
	assert.Empty(t, files[0].ProcessedFileURL)

	logs, err := f.store.GetLogs(context.Background(), models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "template unreadable", logs[0].Result)
	assert.Equal(t, "Error", logs[0].Status)

	names, err := f.artifacts.List(f.party.ID)
	require.NoError(t, err)
	assert.Empty(t, names)
}

// failingStore fails UpdateFileStatus on the nth call
type failingStore struct {
	*repository.MemoryStore
	failOn int
	calls  int
}

func (s *failingStore) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus, processedFileURL string) error {
	s.calls++
	if s.calls == s.failOn {
		return errors.New("disk full")
	}
	return s.MemoryStore.UpdateFileStatus(ctx, id, status, processedFileURL)
}

func TestComplianceService_ProcessParty_StartFailureReleasesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "b2b.csv", b2bCSV)
	f.upload(t, "hsn_b2b.csv", hsnCSVFixture)

	store := &failingStore{MemoryStore: f.store, failOn: 2}
	runner := &mockRunner{runFunc: func(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error) {
		t.Fatal("runner must not start when files cannot be claimed")
		return nil, nil
	}}
	svc := NewComplianceService(store, runner, f.artifacts, Defaults{}, zap.NewNop())

	outcome, err := svc.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, outcome)

	files, err := f.store.GetFiles(ctx, models.FileFilter{CustomerID: f.party.ID})
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, file := range files {
		assert.Equal(t, models.FileStatusPending, file.Status, file.FileName)
	}

	// Once the store recovers the same files run normally
	store.failOn = 0
	svc = NewComplianceService(store, processor.NewProcessor(registry, processor.Config{}, zap.NewNop()), f.artifacts, Defaults{}, zap.NewNop())
	again, err := svc.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	require.NoError(t, err)
	assert.Len(t, again.FileIDs, 2)
}

func TestComplianceService_ProcessParty_FailedRerunDropsOldArtifactURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, "b2b.csv", b2bCSV)

	ok := NewComplianceService(f.store, processor.NewProcessor(registry, processor.Config{}, zap.NewNop()), f.artifacts, Defaults{}, zap.NewNop())
	_, err := ok.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	require.NoError(t, err)

	requeued, err := f.parties.RequeueFile(ctx, f.party.ID, file.ID)
	require.NoError(t, err)
	assert.Empty(t, requeued.ProcessedFileURL)

	failing := NewComplianceService(f.store, &mockRunner{runFunc: func(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error) {
		return nil, errors.New("template unreadable")
	}}, f.artifacts, Defaults{}, zap.NewNop())
	_, err = failing.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	require.Error(t, err)

	files, err := f.store.GetFiles(ctx, models.FileFilter{CustomerID: f.party.ID})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.FileStatusError, files[0].Status)
	assert.Empty(t, files[0].ProcessedFileURL, "an errored file does not link an earlier workbook")
}

func TestComplianceService_ProcessParty_Rejections(t *testing.T) {
	f := newFixture(t)
	svc := NewComplianceService(f.store, &mockRunner{}, f.artifacts, Defaults{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ProcessParty(ctx, "nobody", ProcessRequest{})
	assert.ErrorIs(t, err, ErrPartyNotFound)

	_, err = svc.ProcessParty(ctx, f.party.ID, ProcessRequest{})
	assert.ErrorIs(t, err, ErrNoPendingFiles)

	f.upload(t, "b2b.csv", b2bCSV)
	_, err = svc.ProcessParty(ctx, f.party.ID, ProcessRequest{Dialect: "sap"})
	assert.Error(t, err)
}

func TestPartyService_Uploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := f.upload(t, "hsn_b2c.csv", hsnCSVFixture)
	assert.Equal(t, models.FileStatusPending, file.Status)
	assert.Equal(t, "CA001", file.CACode)
	assert.Equal(t, "82 B", file.FileSize)

	_, err := f.parties.UploadFile(ctx, f.party.ID, UploadRequest{FileName: "empty.csv"})
	assert.ErrorIs(t, err, ErrEmptyUpload)

	_, err = f.parties.UploadFile(ctx, "nobody", UploadRequest{FileName: "b2b.csv", Content: b2bCSV})
	assert.ErrorIs(t, err, ErrPartyNotFound)

	_, err = f.parties.ListLogs(ctx, "nobody")
	assert.ErrorIs(t, err, ErrPartyNotFound)

	_, err = f.parties.OpenArtifact(ctx, f.party.ID, "missing.xlsx")
	assert.ErrorIs(t, err, storage.ErrArtifactNotFound)

	dup := &models.User{Username: "acme", FullName: "Other", Role: models.RoleCustomer, CACode: "CA002"}
	assert.ErrorIs(t, f.parties.RegisterUser(ctx, dup), repository.ErrDuplicate)
}

var hsnCSVFixture = []byte("HSN,Description,Total Taxable Value,Rate\n8471,Laptops,1500,\n9983,Services,4000,18\n")

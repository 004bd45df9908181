package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"artwork-backend/internal/database"
	"artwork-backend/internal/messaging"
	"artwork-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func createTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

type processorFixture struct {
	db      *gorm.DB
	storage storage.ObjectStore
	queue   *messaging.InMemoryQueue
	proc    *TaskProcessor
}

func newProcessorFixture(t *testing.T, p *Pipeline) *processorFixture {
	t.Helper()

	db := createTestDatabase(t)

	store, err := storage.NewLocalObjectStore(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)
	require.NoError(t, store.CreateBucket(context.Background(), UploadBucket))
	require.NoError(t, store.CreateBucket(context.Background(), OutputBucket))

	queue := messaging.NewInMemoryQueue()

	return &processorFixture{
		db:      db,
		storage: store,
		queue:   queue,
		proc:    NewTaskProcessor(db, store, queue, queue, p, t.TempDir()),
	}
}

func (f *processorFixture) queueRun(t *testing.T, inputPath string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	uploadId := uuid.New()
	sourceFile := filepath.Base(inputPath)

	file, err := os.Open(inputPath)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, f.storage.PutObject(ctx, UploadBucket, uploadId.String()+"/"+sourceFile, file))

	run := database.Run{
		Id:             uuid.New(),
		UploadId:       uploadId,
		SourceFile:     sourceFile,
		ApprovalFilter: "both",
		Status:         database.JobQueued,
		CreationTime:   time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&run).Error)
	require.NoError(t, f.queue.PublishRunTask(ctx, messaging.RunTaskPayload{RunId: run.Id}))

	return run.Id
}

func (f *processorFixture) getRun(t *testing.T, runId uuid.UUID) database.Run {
	t.Helper()

	var run database.Run
	require.NoError(t, f.db.Preload("Errors").First(&run, "id = ?", runId).Error)
	return run
}

func TestProcessRunTask(t *testing.T) {
	dir := t.TempDir()
	fixture := newProcessorFixture(t, fixturePipeline(t, dir))

	runId := fixture.queueRun(t, writeOrderFixture(t, dir))
	fixture.proc.ProcessTask(<-fixture.queue.Tasks())

	run := fixture.getRun(t, runId)
	assert.Equal(t, database.JobCompleted, run.Status)
	assert.Equal(t, database.StageDone, run.Stage)
	assert.Equal(t, 100, run.Progress)
	assert.True(t, run.CompletionTime.Valid)
	assert.Equal(t, 10, run.TotalRowCount)
	assert.Equal(t, 6, run.ValidRowCount)
	assert.Equal(t, 4, run.RejectedRowCount)
	assert.Equal(t, 3, run.DocumentCount)
	require.True(t, run.ArchivePath.Valid)
	assert.Equal(t, runId.String()+"/"+ArchiveName, run.ArchivePath.String)

	archive, err := fixture.storage.GetObject(context.Background(), OutputBucket, run.ArchivePath.String)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(archive[:2]))
}

func TestProcessRunTaskFatalError(t *testing.T) {
	dir := t.TempDir()

	// The reference database does not exist, so every run fails outright.
	p := &Pipeline{ReferencePath: filepath.Join(dir, "missing.xlsx"), ImageDir: dir}
	fixture := newProcessorFixture(t, p)

	runId := fixture.queueRun(t, writeOrderFixture(t, dir))
	fixture.proc.ProcessTask(<-fixture.queue.Tasks())

	run := fixture.getRun(t, runId)
	assert.Equal(t, database.JobFailed, run.Status)
	assert.True(t, run.CompletionTime.Valid)
	assert.NotEmpty(t, run.Message)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, run.Message, run.Errors[0].Error)
}

func TestProcessRunTaskSkipsNonQueuedRun(t *testing.T) {
	dir := t.TempDir()
	fixture := newProcessorFixture(t, fixturePipeline(t, dir))

	runId := fixture.queueRun(t, writeOrderFixture(t, dir))
	require.NoError(t, fixture.db.Model(&database.Run{Id: runId}).Update("status", database.JobCompleted).Error)

	fixture.proc.ProcessTask(<-fixture.queue.Tasks())

	run := fixture.getRun(t, runId)
	assert.Equal(t, database.JobCompleted, run.Status)
	assert.Equal(t, 0, run.TotalRowCount)
}

func TestProcessRunTaskMissingUpload(t *testing.T) {
	dir := t.TempDir()
	fixture := newProcessorFixture(t, fixturePipeline(t, dir))

	run := database.Run{
		Id:             uuid.New(),
		UploadId:       uuid.New(),
		SourceFile:     "orders.xlsx",
		ApprovalFilter: "both",
		Status:         database.JobQueued,
		CreationTime:   time.Now().UTC(),
	}
	require.NoError(t, fixture.db.Create(&run).Error)
	require.NoError(t, fixture.queue.PublishRunTask(context.Background(), messaging.RunTaskPayload{RunId: run.Id}))

	fixture.proc.ProcessTask(<-fixture.queue.Tasks())

	got := fixture.getRun(t, run.Id)
	assert.Equal(t, database.JobFailed, got.Status)
	assert.Contains(t, got.Message, "unable to retrieve uploaded file")
}

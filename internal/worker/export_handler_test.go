package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"phResumeRender/internal/database"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/errcode"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/tasks"
	"phResumeRender/internal/transfer"
)

type fakeStorage struct {
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) (*minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.objects[objectName] = data
	f.contentType[objectName] = contentType
	return &minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	delete(f.objects, objectKey)
	return nil
}

func (f *fakeStorage) ReadObject(_ context.Context, objectKey string, _ int64) ([]byte, string, error) {
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return data, f.contentType[objectKey], nil
}

type fakePrinter struct {
	html []byte
	err  error
}

func (p *fakePrinter) PrintHTML(_ context.Context, html []byte) ([]byte, error) {
	p.html = html
	return []byte("%PDF-fake"), p.err
}

func (p *fakePrinter) ScreenshotHTML(_ context.Context, html []byte, _ int) ([]byte, error) {
	p.html = html
	return []byte("jpeg"), p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createJob(t *testing.T, db *gorm.DB, format database.ExportFormat, rec *resume.Record) database.ExportJob {
	t.Helper()
	snapshot, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	job := database.ExportJob{
		PublicID: uuid.NewString(),
		Title:    rec.Title,
		Format:   format,
		Status:   database.StatusPending,
		Snapshot: datatypes.JSON(snapshot),
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func newTask(t *testing.T, id uint) *asynq.Task {
	t.Helper()
	task, err := tasks.NewExportTask(id, "cid-1")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func sampleRecord() *resume.Record {
	return &resume.Record{
		Title:  "Jane Doe",
		Avatar: "avatars/missing.png",
		Modules: []resume.Module{{
			ID:    "m1",
			Title: "Experience",
			Rows: []resume.Row{{
				ID:       "r1",
				Columns:  1,
				Elements: []resume.Element{{ID: "e1", Content: json.RawMessage(`"Built things"`)}},
			}},
		}},
	}
}

func TestProcessTaskRendersDocumentPDF(t *testing.T) {
	db := openTestDB(t)
	store := newFakeStorage()
	broker := transfer.NewMemoryBroker()
	handler := NewExportTaskHandler(db, store, broker, docrender.NewRenderer(docrender.NewFonts(discardLogger(), "")), &fakePrinter{}, discardLogger())

	job := createJob(t, db, database.FormatPDF, sampleRecord())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifications, stop, err := broker.Subscribe(ctx, tasks.NotifyTopic(job.PublicID))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	if err := handler.ProcessTask(ctx, newTask(t, job.ID)); err != nil {
		t.Fatalf("process: %v", err)
	}

	var got database.ExportJob
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != database.StatusCompleted || got.ObjectKey != "exports/"+job.PublicID+".pdf" {
		t.Fatalf("unexpected job state: %+v", got)
	}
	if got.FileName != "Jane Doe.pdf" {
		t.Fatalf("file name = %q", got.FileName)
	}
	if got.ErrorCode != errcode.ResourceMissing || !strings.Contains(string(got.MissingKeys), "avatars/missing.png") {
		t.Fatalf("missing avatar must be recorded: code=%d keys=%s", got.ErrorCode, got.MissingKeys)
	}
	if !bytes.HasPrefix(store.objects[got.ObjectKey], []byte("%PDF")) {
		t.Fatal("uploaded object is not a pdf")
	}

	select {
	case raw := <-notifications:
		var msg ExportNotifyMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode notification: %v", err)
		}
		if msg.Status != "completed" || msg.JobID != job.PublicID || msg.ErrorCode != errcode.ResourceMissing {
			t.Fatalf("unexpected notification %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification published")
	}
}

func TestProcessTaskPrintAndImage(t *testing.T) {
	db := openTestDB(t)
	store := newFakeStorage()
	store.objects["avatars/a.png"] = []byte("png")
	store.contentType["avatars/a.png"] = "image/png"
	printer := &fakePrinter{}
	handler := NewExportTaskHandler(db, store, nil, docrender.NewRenderer(nil), printer, discardLogger())

	rec := sampleRecord()
	rec.Avatar = "avatars/a.png"

	printJob := createJob(t, db, database.FormatPrint, rec)
	if err := handler.ProcessTask(context.Background(), newTask(t, printJob.ID)); err != nil {
		t.Fatalf("process print: %v", err)
	}
	if !bytes.Contains(printer.html, []byte("pdf-render-ready")) {
		t.Fatal("print format must use the print page")
	}
	if !bytes.Contains(printer.html, []byte("data:image/png;base64,cG5n")) {
		t.Fatal("avatar must be inlined before printing")
	}
	if string(store.objects["exports/"+printJob.PublicID+".pdf"]) != "%PDF-fake" {
		t.Fatal("printed pdf not uploaded")
	}

	imageJob := createJob(t, db, database.FormatImage, rec)
	if err := handler.ProcessTask(context.Background(), newTask(t, imageJob.ID)); err != nil {
		t.Fatalf("process image: %v", err)
	}
	key := "exports/" + imageJob.PublicID + ".jpg"
	if store.contentType[key] != "image/jpeg" {
		t.Fatalf("unexpected image upload: %v", store.contentType)
	}
	var got database.ExportJob
	if err := db.First(&got, imageJob.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.FileName != "Jane Doe.jpg" || got.ErrorCode != errcode.OK {
		t.Fatalf("unexpected job state: %+v", got)
	}
}

func TestProcessTaskUnsupportedFormatFails(t *testing.T) {
	db := openTestDB(t)
	handler := NewExportTaskHandler(db, newFakeStorage(), nil, docrender.NewRenderer(nil), &fakePrinter{}, discardLogger())

	job := createJob(t, db, database.ExportFormat("docx"), sampleRecord())
	err := handler.ProcessTask(context.Background(), newTask(t, job.ID))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	var got database.ExportJob
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != database.StatusFailed || got.ErrorCode != errcode.UnsupportedFormat {
		t.Fatalf("job must be marked failed: %+v", got)
	}
}

func TestProcessTaskMissingJobIsSkipped(t *testing.T) {
	db := openTestDB(t)
	handler := NewExportTaskHandler(db, newFakeStorage(), nil, docrender.NewRenderer(nil), &fakePrinter{}, discardLogger())
	if err := handler.ProcessTask(context.Background(), newTask(t, 42)); err != nil {
		t.Fatalf("missing job must be skipped: %v", err)
	}
}

func TestProcessTaskRetriesPrinterErrors(t *testing.T) {
	db := openTestDB(t)
	handler := NewExportTaskHandler(db, newFakeStorage(), nil, docrender.NewRenderer(nil), &fakePrinter{err: errors.New("chromium crashed")}, discardLogger())

	job := createJob(t, db, database.FormatPrint, &resume.Record{Title: "t"})
	if err := handler.ProcessTask(context.Background(), newTask(t, job.ID)); err == nil {
		t.Fatal("expected printer error")
	}
	var got database.ExportJob
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != database.StatusProcessing {
		t.Fatalf("non final attempt must keep the job retryable, status=%s", got.Status)
	}
}

func TestProcessTaskInvalidSnapshotFails(t *testing.T) {
	db := openTestDB(t)
	handler := NewExportTaskHandler(db, newFakeStorage(), nil, docrender.NewRenderer(nil), &fakePrinter{}, discardLogger())

	job := createJob(t, db, database.FormatPDF, &resume.Record{Title: "t"})
	if err := db.Model(&job).Update("snapshot", datatypes.JSON(`{"modules":"oops"}`)).Error; err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}
	err := handler.ProcessTask(context.Background(), newTask(t, job.ID))
	if !errors.Is(err, asynq.SkipRetry) || errcode.Of(err) != errcode.InvalidRecord {
		t.Fatalf("expected coded SkipRetry, got %v", err)
	}

	var got database.ExportJob
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != database.StatusFailed || got.ErrorCode != errcode.InvalidRecord {
		t.Fatalf("job must be marked failed: %+v", got)
	}
}

package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/daonlab/talkreport/config"
	"github.com/daonlab/talkreport/internal/providers/design"
	"github.com/daonlab/talkreport/internal/providers/stt"
	"github.com/daonlab/talkreport/internal/workers"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeStorage records uploads and deletes in memory.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[objectName] = data
	return "https://storage.example.com/" + objectName, nil
}

func (f *fakeStorage) SignedGetURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + objectName, nil
}

func (f *fakeStorage) Delete(_ context.Context, objectName string) error {
	delete(f.objects, objectName)
	f.deleted = append(f.deleted, objectName)
	return nil
}

// fakeSTT returns a canned utterance list, or an error.
type fakeSTT struct {
	result *stt.Result
	err    error
	calls  int
}

func (f *fakeSTT) Transcribe(context.Context, string, string, stt.VendorConfig) (*stt.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeLLM returns canned content.
type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) Complete(_ context.Context, model, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.content, model, nil
}

func (f *fakeLLM) Close() error { return nil }

// fakeDesign returns fixed identifiers.
type fakeDesign struct {
	err error
}

func (f *fakeDesign) CreateDesign(context.Context, design.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "design-1", nil
}

func (f *fakeDesign) ExportPDF(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://pdf.example.com/design-1.pdf", nil
}

type nilProber struct{}

func (nilProber) Duration(context.Context, []byte) *int { return nil }

func syncRunner(t *testing.T) *workers.Runner {
	t.Helper()
	r := workers.NewRunner(testLogger())
	t.Cleanup(r.Wait)
	return r
}

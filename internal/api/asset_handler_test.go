package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"phResumeRender/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeStorage struct {
	uploaded    map[string][]byte
	contentType map[string]string
	presign     map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploaded:    map[string][]byte{},
		contentType: map[string]string{},
		presign:     map[string]string{},
	}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	s.contentType[objectName] = contentType
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) ReadObject(_ context.Context, objectKey string, _ int64) ([]byte, string, error) {
	b, ok := s.uploaded[objectKey]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return b, s.contentType[objectKey], nil
}

func (s *fakeStorage) GeneratePresignedURLWithParams(_ context.Context, objectKey string, _ time.Duration, params map[string]string) (string, error) {
	s.presign[objectKey] = params["response-content-disposition"]
	return "https://example.invalid/" + objectKey, nil
}

type fakeScanner struct {
	clean bool
	err   error
	calls int
}

func (s *fakeScanner) Scan(r io.Reader) (bool, error) {
	s.calls++
	_, _ = io.Copy(io.Discard, r)
	return s.clean, s.err
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func uploadAvatar(t *testing.T, h *AssetHandler, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, contentType := newMultipartUpload(t, "a.png", content)
	req := httptest.NewRequest(http.MethodPost, "/v1/assets/avatar", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	h.UploadAvatar(c)
	return w
}

func TestUploadAvatarStoresObject(t *testing.T) {
	store := newFakeStorage()
	scanner := &fakeScanner{clean: true}
	h := &AssetHandler{Storage: store, Scanner: scanner, MaxBytes: 1024}

	w := uploadAvatar(t, h, pngHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	if scanner.calls != 1 {
		t.Fatalf("expected one scan, got %d", scanner.calls)
	}
	if len(store.uploaded) != 1 {
		t.Fatalf("expected one upload, got %d", len(store.uploaded))
	}
	for key := range store.uploaded {
		if !storage.IsAvatarKey(key) || !strings.HasSuffix(key, ".png") {
			t.Fatalf("unexpected object key %q", key)
		}
		if !strings.Contains(w.Body.String(), key) {
			t.Fatalf("response must contain the object key: %s", w.Body.String())
		}
	}
}

func TestUploadAvatarRejects(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
		scanner *fakeScanner
		status  int
	}{
		{name: "not an image", content: []byte("plain text"), status: http.StatusBadRequest},
		{name: "too large", content: append(append([]byte{}, pngHeader...), make([]byte, 2048)...), status: http.StatusRequestEntityTooLarge},
		{name: "infected", content: pngHeader, scanner: &fakeScanner{clean: false}, status: http.StatusBadRequest},
		{name: "scanner down", content: pngHeader, scanner: &fakeScanner{err: errors.New("dial clamd")}, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStorage()
			h := &AssetHandler{Storage: store, MaxBytes: 1024}
			if tc.scanner != nil {
				h.Scanner = tc.scanner
			}
			w := uploadAvatar(t, h, tc.content)
			if w.Code != tc.status {
				t.Fatalf("expected %d got %d body=%s", tc.status, w.Code, w.Body.String())
			}
			if len(store.uploaded) != 0 {
				t.Fatal("rejected upload must not reach storage")
			}
		})
	}
}

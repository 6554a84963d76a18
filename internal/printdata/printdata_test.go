package printdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"phResumeRender/internal/errcode"
	"phResumeRender/internal/resume"
)

type fakeObjects struct {
	objects map[string][]byte
	err     error
	calls   int
}

func (f *fakeObjects) ReadObject(_ context.Context, key string, _ int64) ([]byte, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return data, "image/jpeg", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInlineAvatar(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{"avatars/a.jpg": []byte("img")}}
	rec := &resume.Record{Title: "t", Avatar: "avatars/a.jpg"}

	out, warning, err := Inline(context.Background(), objects, rec, discardLogger())
	if err != nil || warning != nil {
		t.Fatalf("inline: %v %+v", err, warning)
	}
	if out.Avatar != "data:image/jpeg;base64,aW1n" {
		t.Fatalf("avatar = %q", out.Avatar)
	}
	if rec.Avatar != "avatars/a.jpg" {
		t.Fatal("input record must not be modified")
	}
}

func TestInlineMissingAvatarWarns(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{}}
	for _, key := range []string{"avatars/missing.png", "avatars/../x.png"} {
		out, warning, err := Inline(context.Background(), objects, &resume.Record{Avatar: key}, discardLogger())
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if out.Avatar != "" {
			t.Fatalf("%s: avatar must be dropped", key)
		}
		if warning == nil || warning.Code != errcode.ResourceMissing || warning.MissingKeys[0] != key {
			t.Fatalf("%s: unexpected warning %+v", key, warning)
		}
	}
	if objects.calls != 1 {
		t.Fatalf("invalid keys must not reach storage, calls = %d", objects.calls)
	}
}

func TestInlineBucketErrorFails(t *testing.T) {
	objects := &fakeObjects{err: minio.ErrorResponse{Code: "NoSuchBucket"}}
	_, _, err := Inline(context.Background(), objects, &resume.Record{Avatar: "avatars/a.png"}, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}

	objects.err = errors.New("boom")
	if _, _, err := Inline(context.Background(), objects, &resume.Record{Avatar: "avatars/a.png"}, discardLogger()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestInlineKeepsExternalReferences(t *testing.T) {
	objects := &fakeObjects{}
	for _, ref := range []string{"", "data:image/png;base64,AA==", "https://example.com/a.png"} {
		out, warning, err := Inline(context.Background(), objects, &resume.Record{Avatar: ref}, discardLogger())
		if err != nil || warning != nil || out.Avatar != ref {
			t.Fatalf("%q: %q %+v %v", ref, out.Avatar, warning, err)
		}
	}
	if objects.calls != 0 {
		t.Fatal("external references must not reach storage")
	}
}

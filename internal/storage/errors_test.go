package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestErrorClassification(t *testing.T) {
	noKey := fmt.Errorf("stat avatar: %w", minio.ErrorResponse{Code: "NoSuchKey"})
	noBucket := minio.ErrorResponse{Code: "NoSuchBucket"}
	denied := minio.ErrorResponse{Code: "AccessDenied", Message: "not found in policy"}

	if !IsNoSuchKey(noKey) || IsNoSuchBucket(noKey) {
		t.Fatal("wrapped NoSuchKey misclassified")
	}
	if !IsNoSuchBucket(noBucket) || IsNoSuchKey(noBucket) {
		t.Fatal("NoSuchBucket misclassified")
	}
	if IsNoSuchKey(denied) {
		t.Fatal("access errors must not read as missing objects")
	}
	if !IsNoSuchKey(errors.New("The specified key does not exist.")) {
		t.Fatal("plain text fallback not recognised")
	}
	if IsNoSuchKey(nil) || IsNoSuchBucket(nil) {
		t.Fatal("nil error")
	}
}

package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrObjectTooLarge 对象超过调用方允许读取的大小。
var ErrObjectTooLarge = errors.New("object too large")

// errorCode 返回 S3 错误码（小写），错误链中没有 minio.ErrorResponse 时返回空串。
func errorCode(err error) string {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return strings.ToLower(strings.TrimSpace(resp.Code))
	}
	return ""
}

// IsNoSuchKey 判断对象是否不存在。头像被删除属于可跳过的资源缺失。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "nosuchkey", "notfound":
		return true
	case "":
		// 经网关转发后可能只剩错误文本
		return strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
	}
	return false
}

// IsNoSuchBucket 判断 Bucket 是否不存在，这类错误属于部署问题，不能当作资源缺失跳过。
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "nosuchbucket":
		return true
	case "":
		return strings.Contains(strings.ToLower(err.Error()), "specified bucket does not exist")
	}
	return false
}

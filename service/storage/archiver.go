// Package storage 把上传的原始文件归档到阿里云 OSS
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"docinsight-backend/config"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

const objectPrefix = "documents"

// ObjectClient 使用到的 OSS 客户端方法
type ObjectClient interface {
	PutObjectFromFile(ctx context.Context, request *oss.PutObjectRequest, filePath string, optFns ...func(*oss.Options)) (*oss.PutObjectResult, error)
	Presign(ctx context.Context, request any, optFns ...func(*oss.PresignOptions)) (*oss.PresignResult, error)
}

type Archiver struct {
	client         ObjectClient
	bucket         string
	presignExpires time.Duration
}

type PresignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewOSSClient 使用静态 AccessKey 创建 OSS 客户端
func NewOSSClient(cfg config.OSSConfig) *oss.Client {
	ossCfg := oss.LoadDefaultConfig().
		WithRegion(cfg.Region).
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.AccessKeySecret,
		))
	return oss.NewClient(ossCfg)
}

func NewArchiver(client ObjectClient, bucket string, presignExpires time.Duration) *Archiver {
	return &Archiver{
		client:         client,
		bucket:         bucket,
		presignExpires: presignExpires,
	}
}

// Archive 上传文件，返回对象名
func (a *Archiver) Archive(ctx context.Context, documentID, originalName, filePath string) (string, error) {
	objectName := ObjectName(documentID, originalName)

	_, err := a.client.PutObjectFromFile(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(a.bucket),
		Key:    oss.Ptr(objectName),
	}, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", objectName, err)
	}
	return objectName, nil
}

// PresignURL 生成对象的临时下载链接
func (a *Archiver) PresignURL(ctx context.Context, objectName string) (*PresignedURL, error) {
	result, err := a.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(a.bucket),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(a.presignExpires))
	if err != nil {
		return nil, fmt.Errorf("failed to presign object %s: %w", objectName, err)
	}

	return &PresignedURL{URL: result.URL, ExpiresAt: result.Expiration}, nil
}

// ObjectName 返回 documents/<文档 ID>/<原始文件名>，文件名中的目录部分会被去掉
func ObjectName(documentID, originalName string) string {
	name := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "original"
	}
	return path.Join(objectPrefix, documentID, name)
}

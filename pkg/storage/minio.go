// Package storage提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"
	"resume-chat-go/internal/config"
	"resume-chat-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore 是简历原文件的存取接口。
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// MinIOStore 把对象存放在单个 MinIO 存储桶中。
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("[MinIO] 存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}
	log.Infof("[MinIO] 客户端初始化成功, bucket: %s", cfg.BucketName)
	return &MinIOStore{client: client, bucket: cfg.BucketName}, nil
}

// PutObject 上传一个对象。size 未知时传 -1。
func (s *MinIOStore) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Errorf("[MinIO] 上传对象失败, object: %s, err: %v", objectName, err)
		return err
	}
	return nil
}

// GetObject 下载一个对象，调用方负责关闭。
func (s *MinIOStore) GetObject(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject 是惰性的，Stat 才会真正发出请求
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectName, err)
	}
	return obj, nil
}

// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"launchgpt-go/internal/config"
	"launchgpt-go/pkg/log"
)

// NewMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
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
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}
	log.Info("MinIO 客户端初始化成功")
	return client, nil
}

// TranscriptKey 返回原始对话记录的对象名。
func TranscriptKey(userID, chatID uint) string {
	return fmt.Sprintf("%s%d.json", TranscriptPrefix(userID), chatID)
}

// TranscriptPrefix 返回某个用户全部对话记录的对象名前缀。
func TranscriptPrefix(userID uint) string {
	return fmt.Sprintf("transcripts/%d/", userID)
}

// TranscriptStore 在存储桶中保存原始对话记录。
type TranscriptStore struct {
	client *minio.Client
	bucket string
}

// NewTranscriptStore 创建 TranscriptStore。
func NewTranscriptStore(client *minio.Client, bucket string) *TranscriptStore {
	return &TranscriptStore{client: client, bucket: bucket}
}

// Put 上传一条对话记录，已存在时覆盖。
func (s *TranscriptStore) Put(ctx context.Context, userID, chatID uint, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, TranscriptKey(userID, chatID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("上传对话记录失败: %w", err)
	}
	return nil
}

// RemoveUser 删除某个用户的全部对话记录。列举或删除失败时返回第一个错误，
// 以便调用方重试。
func (s *TranscriptStore) RemoveUser(ctx context.Context, userID uint) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    TranscriptPrefix(userID),
		Recursive: true,
	})
	var listErr error
	toRemove := make(chan minio.ObjectInfo)
	go func() {
		defer close(toRemove)
		for obj := range objects {
			if obj.Err != nil {
				if listErr == nil {
					listErr = fmt.Errorf("列出对话记录失败: %w", obj.Err)
				}
				continue
			}
			select {
			case toRemove <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("删除对话记录 %s 失败: %w", rErr.ObjectName, rErr.Err)
		}
	}
	// RemoveObjects 的结果通道在 toRemove 关闭之后才关闭，此时 listErr 已写入
	if firstErr == nil {
		firstErr = listErr
	}
	return firstErr
}

// PresignedURL 为对话记录生成临时下载链接。
func (s *TranscriptStore) PresignedURL(ctx context.Context, userID, chatID uint, expiry time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=\"chat-%d.json\"", chatID))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, TranscriptKey(userID, chatID), expiry, params)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return u.String(), nil
}

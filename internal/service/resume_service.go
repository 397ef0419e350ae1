package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/storage"
	"resume-chat-go/pkg/tasks"
	"strings"
)

// MaxResumeSize 是允许上传的简历文件大小上限（10MB）。
const MaxResumeSize = 10 << 20

// ErrUnsupportedFileType 表示不支持的简历文件类型。
var ErrUnsupportedFileType = errors.New("unsupported resume file type")

var supportedResumeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// TaskPublisher 把入库任务投递到消息队列，由 kafka.Producer 实现。
type TaskPublisher interface {
	PublishResumeTask(ctx context.Context, task tasks.ResumeIngestTask) error
}

// ResumeService 负责接收简历文件并触发离线入库。
type ResumeService interface {
	UploadResume(ctx context.Context, fileName string, file io.Reader) (*tasks.ResumeIngestTask, error)
}

type resumeService struct {
	store     storage.ObjectStore
	publisher TaskPublisher
}

// NewResumeService 创建一个新的 ResumeService 实例。
func NewResumeService(store storage.ObjectStore, publisher TaskPublisher) ResumeService {
	return &resumeService{store: store, publisher: publisher}
}

// ObjectName 返回简历在对象存储中的路径。
func ObjectName(fileMD5, fileName string) string {
	return fmt.Sprintf("resume/%s/%s", fileMD5, fileName)
}

// UploadResume 保存文件到对象存储并发送入库任务。
func (s *resumeService) UploadResume(ctx context.Context, fileName string, file io.Reader) (*tasks.ResumeIngestTask, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := supportedResumeTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxResumeSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("resume file is empty")
	}
	if len(data) > MaxResumeSize {
		return nil, fmt.Errorf("resume file exceeds %d bytes", MaxResumeSize)
	}

	sum := md5.Sum(data)
	fileMD5 := hex.EncodeToString(sum[:])
	objectName := ObjectName(fileMD5, fileName)

	if err := s.store.PutObject(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("上传简历到对象存储失败: %w", err)
	}

	task := tasks.ResumeIngestTask{FileMD5: fileMD5, ObjectName: objectName, FileName: fileName}
	if err := s.publisher.PublishResumeTask(ctx, task); err != nil {
		return nil, fmt.Errorf("发送入库任务失败: %w", err)
	}
	log.Infof("[ResumeService] 简历已上传并投递入库任务, MD5: %s, object: %s", fileMD5, objectName)
	return &task, nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"resume-chat-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_ListUsersWithCounts(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	a := stores.addUser(t, "alice", 15)
	stores.addUser(t, "bob", 15)
	stores.addTurns(t, a.ID, 3)
	admin := NewAdminService(stores.users, NewHistoryService(stores.turns), NewQuotaService(stores.users, stores.turns))

	resp, err := admin.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalElements)
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, "alice", resp.Content[0].Username)
	assert.Equal(t, int64(3), resp.Content[0].MessageCount)
	assert.Zero(t, resp.Content[1].MessageCount)
}

func TestAdmin_SetMaxMessagesUnblocksUser(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	u := stores.addUser(t, "alice", 1)
	stores.addTurns(t, u.ID, 1)
	quota := NewQuotaService(stores.users, stores.turns)
	admin := NewAdminService(stores.users, NewHistoryService(stores.turns), quota)

	ok, err := quota.IsWithinQuota(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, admin.SetMaxMessages(ctx, u.ID, 5))
	ok, err = quota.IsWithinQuota(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, admin.SetMaxMessages(ctx, 424242, 5), ErrUserNotFound)
	assert.Error(t, admin.SetMaxMessages(ctx, u.ID, -1))
}

func TestAdmin_GetAllConversations(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	a := stores.addUser(t, "alice", 15)
	b := stores.addUser(t, "bob", 15)
	history := NewHistoryService(stores.turns)
	require.NoError(t, history.AppendTurn(ctx, a.ID, "q1", "a1"))
	require.NoError(t, history.AppendTurn(ctx, b.ID, "q2", "a2"))
	admin := NewAdminService(stores.users, history, NewQuotaService(stores.users, stores.turns))

	all, err := admin.GetAllConversations(ctx, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)

	onlyB, err := admin.GetAllConversations(ctx, &b.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "q2", onlyB[0].UserQuery)

	past := time.Now().Add(-time.Hour)
	bounded, err := admin.GetAllConversations(ctx, nil, nil, &past)
	require.NoError(t, err)
	assert.Empty(t, bounded)

	missing := uint(999)
	_, err = admin.GetAllConversations(ctx, &missing, nil, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

type memObjectStore struct {
	objects map[string][]byte
	err     error
}

func (m *memObjectStore) PutObject(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[name] = b
	return nil
}

func (m *memObjectStore) GetObject(ctx context.Context, name string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[name])), nil
}

type memPublisher struct {
	published []tasks.ResumeIngestTask
}

func (m *memPublisher) PublishResumeTask(ctx context.Context, task tasks.ResumeIngestTask) error {
	m.published = append(m.published, task)
	return nil
}

func TestUploadResume(t *testing.T) {
	store := &memObjectStore{objects: map[string][]byte{}}
	pub := &memPublisher{}
	svc := NewResumeService(store, pub)

	task, err := svc.UploadResume(context.Background(), "../../Jane CV.pdf", strings.NewReader("%PDF-1.4 resume"))
	require.NoError(t, err)
	assert.Equal(t, "Jane CV.pdf", task.FileName)
	assert.Len(t, task.FileMD5, 32)
	assert.Equal(t, ObjectName(task.FileMD5, "Jane CV.pdf"), task.ObjectName)
	assert.Equal(t, []byte("%PDF-1.4 resume"), store.objects[task.ObjectName])
	require.Len(t, pub.published, 1)
	assert.Equal(t, *task, pub.published[0])
}

func TestUploadResume_Rejections(t *testing.T) {
	store := &memObjectStore{objects: map[string][]byte{}}
	pub := &memPublisher{}
	svc := NewResumeService(store, pub)

	_, err := svc.UploadResume(context.Background(), "cv.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = svc.UploadResume(context.Background(), "cv.txt", strings.NewReader(""))
	assert.Error(t, err)

	store.err = errors.New("minio down")
	_, err = svc.UploadResume(context.Background(), "cv.txt", strings.NewReader("hello"))
	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

package service

import (
	"context"
	"errors"
	"testing"

	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuota_GetUserID(t *testing.T) {
	stores := newTestStores(t)
	u := stores.addUser(t, "recruiter", 15)
	q := NewQuotaService(stores.users, stores.turns)

	id, err := q.GetUserID(context.Background(), "recruiter")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = q.GetUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestQuota_Boundary(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	u := stores.addUser(t, "recruiter", 3)
	q := NewQuotaService(stores.users, stores.turns)

	stores.addTurns(t, u.ID, 2)
	ok, err := q.IsWithinQuota(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok, "count M-1 is within quota")

	stores.addTurns(t, u.ID, 1)
	ok, err = q.IsWithinQuota(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok, "count M is over quota")
}

func TestQuota_ZeroLimitBlocksEverything(t *testing.T) {
	stores := newTestStores(t)
	u := stores.addUser(t, "blocked", 0)
	q := NewQuotaService(stores.users, stores.turns)

	ok, err := q.IsWithinQuota(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuota_CountIsFresh(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	u := stores.addUser(t, "recruiter", 15)
	q := NewQuotaService(stores.users, stores.turns)
	h := NewHistoryService(stores.turns)

	before, err := q.MessageCount(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, h.AppendTurn(ctx, u.ID, "What languages?", "Go."))
	after, err := q.MessageCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

type failingConversationRepo struct {
	repository.ConversationRepository
}

func (failingConversationRepo) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingConversationRepo) Append(ctx context.Context, turn *model.ConversationTurn) error {
	return errors.New("connection refused")
}

func TestQuota_StoreFailureIsUnavailable(t *testing.T) {
	stores := newTestStores(t)
	u := stores.addUser(t, "recruiter", 15)
	q := NewQuotaService(stores.users, failingConversationRepo{})

	_, err := q.IsWithinQuota(context.Background(), u.ID)
	assert.ErrorIs(t, err, ErrQuotaCheckUnavailable)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestHistory_AppendAndList(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	u := stores.addUser(t, "recruiter", 15)
	h := NewHistoryService(stores.turns)

	require.NoError(t, h.AppendTurn(ctx, u.ID, "Where did they study?", "MIT."))
	require.NoError(t, h.AppendTurn(ctx, u.ID, "Which years?", "2010 to 2014."))

	turns, err := h.ListTurns(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Where did they study?", turns[0].UserQuery)
	assert.Equal(t, "MIT.", turns[0].ChatbotAnswer)
	assert.Equal(t, u.ID, turns[1].UserID)

	all, err := h.ListAll(ctx, repository.TurnFilter{UserID: &u.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestHistory_AppendFailure(t *testing.T) {
	h := NewHistoryService(failingConversationRepo{})
	err := h.AppendTurn(context.Background(), 1, "q", "a")
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}

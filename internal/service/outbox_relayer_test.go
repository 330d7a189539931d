package service

import (
	"context"
	"errors"
	"testing"

	"PulseLoop/internal/model"
	"PulseLoop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelayerDrain(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, db, "Ava Author", model.RoleNurse)
	posts := NewPostService(db, newMemStore())
	for i := 0; i < 2; i++ {
		_, err := posts.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Text: "hello", DisplayNamePreference: "FullName"})
		require.NoError(t, err)
	}

	var sent []string
	fail := true
	relayer := NewOutboxRelayer(db, func(_ context.Context, ob *model.EventOutbox) error {
		if fail {
			return errors.New("broker down")
		}
		sent = append(sent, ob.EventType)
		return nil
	})

	relayer.drainOnce(ctx)
	var rows []model.EventOutbox
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, model.OutboxFailed, r.Status)
		assert.Equal(t, 1, r.Retry)
	}

	fail = false
	relayer.drainOnce(ctx)
	assert.Equal(t, []string{model.EventPostCreated, model.EventPostCreated}, sent)
	require.NoError(t, db.Order("id").Find(&rows).Error)
	for _, r := range rows {
		assert.Equal(t, model.OutboxSent, r.Status)
	}

	// 已发送的事件不会重复投递
	relayer.drainOnce(ctx)
	assert.Len(t, sent, 2)
}

func TestOutboxRelayerGivesUpAfterMaxRetry(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.EventOutbox{
		EventType: model.EventPostDeleted, AggregateID: 7, Payload: []byte(`{}`),
		Status: model.OutboxFailed, Retry: outboxMaxRetry,
	}).Error)

	calls := 0
	relayer := NewOutboxRelayer(db, func(context.Context, *model.EventOutbox) error {
		calls++
		return nil
	})
	relayer.drainOnce(ctx)
	assert.Zero(t, calls)
	assert.NoError(t, LogSender(ctx, &model.EventOutbox{EventType: "x", Payload: []byte(`{}`)}))
}

package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
	"github.com/meetly/messagebox/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectMessageReadFlow(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")

	msg := f.direct(t, s, r, "hi")
	require.NotNil(t, msg.DeletedByReceiver)
	assert.False(t, *msg.DeletedByReceiver)

	assert.Len(t, f.list(t, s, DirectionSent), 1)
	received := f.list(t, r, DirectionReceived)
	require.Len(t, received, 1)
	assert.False(t, received[0].ReadStatus)

	got, err := f.svc.GetMessage(ctx, r, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.ReadStatus)

	got, err = f.svc.GetMessage(ctx, s, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.ReadStatus)

	got, err = f.svc.GetMessage(ctx, r, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.ReadStatus)
}

func TestSenderRetrievalDoesNotMarkRead(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	msg := f.direct(t, s, r, "hi")

	got, err := f.svc.GetMessage(ctx, s, msg.ID)
	require.NoError(t, err)
	assert.False(t, got.ReadStatus)

	var stored models.Message
	require.NoError(t, f.db.First(&stored, "id = ?", msg.ID).Error)
	assert.False(t, stored.ReadStatus)
}

func TestSenderDeleteKeepsMessageForReceiver(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	msg := f.direct(t, s, r, "hi")

	require.NoError(t, f.svc.SoftDeleteMessage(ctx, s, msg.ID))

	assert.Empty(t, f.list(t, s, DirectionSent))
	assert.Len(t, f.list(t, r, DirectionReceived), 1)

	_, err := f.svc.GetMessage(ctx, s, msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetMessage(ctx, r, msg.ID)
	assert.NoError(t, err)
}

func TestSoftDeleteIndependence(t *testing.T) {
	for _, actorIsSender := range []bool{true, false} {
		f := newFixture(t)
		s, r := f.user(t, "sender"), f.user(t, "receiver")
		msg := f.direct(t, s, r, "hi")

		actor, other := r, s
		if actorIsSender {
			actor, other = s, r
		}
		require.NoError(t, f.svc.SoftDeleteMessage(ctx, actor, msg.ID))

		_, err := f.svc.GetMessage(ctx, actor, msg.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.svc.GetMessage(ctx, other, msg.ID)
		assert.NoError(t, err)
		assert.Len(t, f.list(t, other, DirectionAll), 1)

		var stored models.Message
		require.NoError(t, f.db.First(&stored, "id = ?", msg.ID).Error)
		require.NotNil(t, stored.DeletedByReceiver)
		assert.Equal(t, actorIsSender, stored.DeletedBySender)
		assert.Equal(t, !actorIsSender, *stored.DeletedByReceiver)
	}
}

func TestBothSidesDeletedHidesFromEveryone(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	msg := f.direct(t, s, r, "hi")

	require.NoError(t, f.svc.SoftDeleteMessage(ctx, s, msg.ID))
	require.NoError(t, f.svc.SoftDeleteMessage(ctx, r, msg.ID))

	assert.Empty(t, f.list(t, s, DirectionAll))
	assert.Empty(t, f.list(t, r, DirectionAll))

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Where("id = ?", msg.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHiddenMessageLooksLikeMissingMessage(t *testing.T) {
	f := newFixture(t)
	s, r, stranger := f.user(t, "sender"), f.user(t, "receiver"), f.user(t, "stranger")
	msg := f.direct(t, s, r, "hi")
	require.NoError(t, f.svc.SoftDeleteMessage(ctx, r, msg.ID))

	_, missing := f.svc.GetMessage(ctx, s, uuid.New())
	_, wrongUser := f.svc.GetMessage(ctx, stranger, msg.ID)
	_, ownTombstone := f.svc.GetMessage(ctx, r, msg.ID)

	assert.ErrorIs(t, missing, ErrNotFound)
	assert.Equal(t, missing, wrongUser)
	assert.Equal(t, missing, ownTombstone)

	assert.ErrorIs(t, f.svc.SoftDeleteMessage(ctx, stranger, msg.ID), ErrNotFound)
	_, err := f.svc.EditMessageContent(ctx, stranger, msg.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditMessageContent(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	msg := f.direct(t, s, r, "hi")

	edited, err := f.svc.EditMessageContent(ctx, s, msg.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content)
	assert.True(t, edited.DateSent.Equal(msg.DateSent))

	_, err = f.svc.EditMessageContent(ctx, r, msg.ID, "hijack")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.EditMessageContent(ctx, s, msg.ID, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "content")

	var stored models.Message
	require.NoError(t, f.db.First(&stored, "id = ?", msg.ID).Error)
	assert.Equal(t, "hello", stored.Content)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	s, r, inactive := f.user(t, "sender"), f.user(t, "receiver"), f.user(t, "inactive")
	f.deactivate(t, inactive)
	thread, err := f.svc.CreateThread(ctx, s, nil, "t")
	require.NoError(t, err)
	unknown := uuid.New()

	tests := []struct {
		name  string
		in    SendMessageInput
		field string
	}{
		{"no address", SendMessageInput{Content: "x"}, "non_field_errors"},
		{"both addresses", SendMessageInput{ReceiverID: &r, ThreadID: &thread.ID, Content: "x"}, "non_field_errors"},
		{"empty content", SendMessageInput{ReceiverID: &r}, "content"},
		{"unknown receiver", SendMessageInput{ReceiverID: &unknown, Content: "x"}, "receiver_id"},
		{"inactive receiver", SendMessageInput{ReceiverID: &inactive, Content: "x"}, "receiver_id"},
		{"unknown thread", SendMessageInput{ThreadID: &unknown, Content: "x"}, "thread_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(ctx, s, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInactiveReceiverError(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	f.deactivate(t, r)

	_, err := f.svc.SendMessage(ctx, s, SendMessageInput{ReceiverID: &r, Content: "x"})
	assert.ErrorIs(t, err, ErrInactiveParticipant)
}

func TestListMessagesDirections(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.user(t, "a"), f.user(t, "b"), f.user(t, "c")
	f.direct(t, a, b, "a to b")
	f.direct(t, b, a, "b to a")
	f.direct(t, b, c, "b to c")

	assert.Len(t, f.list(t, a, DirectionSent), 1)
	assert.Len(t, f.list(t, a, DirectionReceived), 1)
	assert.Len(t, f.list(t, a, DirectionAll), 2)
	assert.Len(t, f.list(t, a, ParseDirection("sideways")), 2)
	assert.Len(t, f.list(t, b, DirectionSent), 2)
	assert.Len(t, f.list(t, c, DirectionAll), 1)
}

func TestListMessagesNewestFirstAndPaged(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	for _, content := range []string{"one", "two", "three"} {
		f.direct(t, s, r, content)
	}

	all := f.list(t, r, DirectionReceived)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Content)
	assert.Equal(t, "one", all[2].Content)

	page, err := f.svc.ListMessages(ctx, r, DirectionReceived, utils.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "one", page.Results[0].Content)

	// the query is restartable
	q := f.svc.MessageQuery(ctx, r, DirectionReceived)
	var n1, n2 int64
	require.NoError(t, q.Count(&n1).Error)
	require.NoError(t, q.Count(&n2).Error)
	assert.Equal(t, n1, n2)
}

func TestConcurrentReadsConverge(t *testing.T) {
	f := newFixture(t)
	s, r := f.user(t, "sender"), f.user(t, "receiver")
	msg := f.direct(t, s, r, "hi")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.svc.GetMessage(ctx, r, msg.ID)
			assert.NoError(t, err)
			assert.True(t, got.ReadStatus)
		}()
	}
	wg.Wait()

	var stored models.Message
	require.NoError(t, f.db.First(&stored, "id = ?", msg.ID).Error)
	assert.True(t, stored.ReadStatus)
}

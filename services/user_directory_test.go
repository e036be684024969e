package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(ctx, "alice", "Alice@Example.com", "secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", u.Password)

	got, err := f.users.Authenticate(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Register(ctx, "alice", "other@example.com", "secret123")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestResolveActive(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")

	u, err := f.users.ResolveActive(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, u.ID)

	f.deactivate(t, a)
	_, err = f.users.ResolveActive(ctx, a)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.users.ResolveActive(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestInactiveAccountStaysInactive(t *testing.T) {
	f := newFixture(t)

	u := models.User{Username: "dormant", Email: "dormant@example.com", Password: "x", IsActive: false}
	require.NoError(t, f.db.Create(&u).Error)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", u.ID).Error)
	assert.False(t, stored.IsActive)

	_, err := f.users.ResolveActive(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestOnUserHardDeleted(t *testing.T) {
	f := newFixture(t)
	gone, r, p := f.user(t, "gone"), f.user(t, "r"), f.user(t, "p")

	sent := f.direct(t, gone, r, "bye")
	received := f.direct(t, r, gone, "hello")
	thread, err := f.svc.CreateThread(ctx, gone, []uuid.UUID{p}, "t")
	require.NoError(t, err)
	inThread := f.toThread(t, gone, thread.ID, "to the thread")
	require.NoError(t, f.svc.SoftDeleteThread(ctx, gone, thread.ID))

	require.NoError(t, f.users.OnUserHardDeleted(ctx, gone))

	var m models.Message
	require.NoError(t, f.db.First(&m, "id = ?", sent.ID).Error)
	assert.Nil(t, m.SenderID)
	assert.True(t, m.DeletedBySender)

	m = models.Message{}
	require.NoError(t, f.db.First(&m, "id = ?", received.ID).Error)
	require.NotNil(t, m.ReceiverID)
	require.NotNil(t, m.DeletedByReceiver)
	assert.True(t, *m.DeletedByReceiver)
	assert.NoError(t, m.Validate())

	// the other sides are untouched
	_, err = f.svc.GetMessage(ctx, r, sent.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetMessage(ctx, r, received.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetMessage(ctx, p, inThread.ID)
	assert.NoError(t, err)

	opened, err := f.svc.GetThread(ctx, p, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p}, opened.ParticipantIDs())

	var rows int64
	require.NoError(t, f.db.Model(&models.ThreadDeletion{}).Where("user_id = ?", gone).Count(&rows).Error)
	assert.Zero(t, rows)

	assert.ErrorIs(t, f.users.OnUserHardDeleted(ctx, gone), ErrNotFound)
}

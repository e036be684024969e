package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/database/dbtest"
	"github.com/meetly/messagebox/models"
	"github.com/meetly/messagebox/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ctx = context.Background()

var firstPage = utils.PageRequest{Page: 1, PageSize: 50}

type fixture struct {
	db    *gorm.DB
	svc   *MessageboxService
	users *UserDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.NewTestDB(t)
	svc := NewMessageboxService(db, zap.NewNop())
	svc.now = steppingClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	return &fixture{db: db, svc: svc, users: NewUserDirectory(db, zap.NewNop())}
}

// steppingClock returns a clock that advances one second per call so send
// order is unambiguous.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := models.User{
		Username: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "x",
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u.ID
}

func (f *fixture) deactivate(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", id).Update("is_active", false).Error)
}

func (f *fixture) direct(t *testing.T, from, to uuid.UUID, content string) *models.Message {
	t.Helper()
	msg, err := f.svc.SendMessage(ctx, from, SendMessageInput{ReceiverID: &to, Content: content})
	require.NoError(t, err)
	return msg
}

func (f *fixture) toThread(t *testing.T, from, thread uuid.UUID, content string) *models.Message {
	t.Helper()
	msg, err := f.svc.SendMessage(ctx, from, SendMessageInput{ThreadID: &thread, Content: content})
	require.NoError(t, err)
	return msg
}

func (f *fixture) list(t *testing.T, viewer uuid.UUID, d Direction) []models.Message {
	t.Helper()
	page, err := f.svc.ListMessages(ctx, viewer, d, firstPage)
	require.NoError(t, err)
	return page.Results
}

func (f *fixture) threadIDs(t *testing.T, viewer uuid.UUID) []uuid.UUID {
	t.Helper()
	page, err := f.svc.ListThreads(ctx, viewer, firstPage)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(page.Results))
	for _, th := range page.Results {
		ids = append(ids, th.ID)
	}
	return ids
}

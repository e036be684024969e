package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserDirectory is the identity side the messagebox depends on: it resolves
// callers to active accounts and owns the account hard-delete lifecycle.
type UserDirectory struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUserDirectory(db *gorm.DB, log *zap.Logger) *UserDirectory {
	return &UserDirectory{db: db, log: log}
}

func (d *UserDirectory) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := models.User{
		Username: username,
		Email:    strings.ToLower(email),
		Password: string(hashed),
		IsActive: true,
	}
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&n).Error
		if err != nil {
			return errors.Wrap(err, "check existing user")
		}
		if n > 0 {
			return newValidationError("username", ErrDuplicateUser)
		}
		return errors.Wrap(tx.Create(&user).Error, "create user")
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("user registered", zap.Stringer("user_id", user.ID))
	return &user, nil
}

// Authenticate checks credentials. Unknown emails, wrong passwords and
// inactive accounts all fail the same way.
func (d *UserDirectory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// ResolveActive maps an authenticated caller to an active account.
func (d *UserDirectory) ResolveActive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated
	}
	return &user, nil
}

// OnUserHardDeleted detaches a removed account from the messagebox. Sent
// messages lose their sender and get the sender tombstone; received direct
// messages get the receiver tombstone and keep the receiver id so their
// addressing stays intact. The user leaves every thread.
func (d *UserDirectory) OnUserHardDeleted(ctx context.Context, id uuid.UUID) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("receiver_id = ? AND thread_id IS NULL", id).
			Update("deleted_by_receiver", true).Error
		if err != nil {
			return errors.Wrap(err, "tombstone received messages")
		}
		err = tx.Model(&models.Message{}).
			Where("sender_id = ?", id).
			Updates(map[string]interface{}{"sender_id": nil, "deleted_by_sender": true}).Error
		if err != nil {
			return errors.Wrap(err, "detach sent messages")
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ThreadParticipant{}).Error; err != nil {
			return errors.Wrap(err, "leave threads")
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ThreadDeletion{}).Error; err != nil {
			return errors.Wrap(err, "drop thread deletions")
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete user")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.log.Info("user hard deleted", zap.Stringer("user_id", id))
	return nil
}

package database

import (
	"github.com/meetly/messagebox/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options is shared by the postgres connection and the sqlite databases used
// in tests so both behave the same.
func Options() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		DisableNestedTransaction:                 true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	}
}

func ConnectDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Options())
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	DB = db
	log.Info("database connected")
	return db, nil
}

func SetupJoinTables(db *gorm.DB) error {
	return db.SetupJoinTable(&models.Thread{}, "Participants", &models.ThreadParticipant{})
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := SetupJoinTables(db); err != nil {
		return errors.Wrap(err, "setup join tables")
	}
	err := db.AutoMigrate(
		&models.User{},
		&models.Thread{},
		&models.ThreadParticipant{},
		&models.ThreadDeletion{},
		&models.Message{},
	)
	if err != nil {
		return errors.Wrap(err, "migrate database")
	}
	log.Info("database migration successful")
	return nil
}

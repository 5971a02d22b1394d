package models

import (
	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Report{},
		&ReportHistory{},
		&ReportEvent{},
		&Contact{},
		&IdempotencyKey{},
	)
}

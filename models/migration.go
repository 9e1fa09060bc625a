package models

import (
	"log"

	"github.com/mmdatafocus/nowmirror_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&MirrorDocument{}, &MirrorRef{},
		&SyncEvent{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

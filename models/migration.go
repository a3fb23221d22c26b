package models

import (
	"log"

	"github.com/ikelabs/counts_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Store{}, &Location{},
		&Product{}, &InventoryItem{},
		&CountSession{}, &CountPass{}, &CountLine{},
		&Movement{},
		&History{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

package pkg

import (
	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/i18n"
)

type Bot struct {
	DB      *db.DB
	Catalog *i18n.Catalog
}

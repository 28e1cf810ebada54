package handlers

import (
	"context"
	"strings"

	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/i18n"

	"github.com/disgoorg/snowflake/v2"
)

// HandleLanguage shows the guild's reply language, or changes it when a code
// is given. The confirmation is already rendered in the new language.
func (h *Handler) HandleLanguage(c *Context) (Reply, error) {
	codes := strings.Join(h.Bot.Catalog.Codes(), ", ")
	if c.Args == "" {
		return reply(ResultMessageLanguageCurrent, i18n.Args{"code": c.Bundle.Code(), "codes": codes})
	}
	bundle, result, err := h.changeLanguage(c.Tx, c.GuildID, c.Args)
	if err != nil {
		return Reply{}, err
	}
	if bundle == nil {
		return reply(result, i18n.Args{"code": c.Args, "codes": codes})
	}
	c.Bundle = bundle
	return reply(result, i18n.Args{"code": bundle.Code(), "codes": codes})
}

// changeLanguage stores the bundle closest to code as the guild's language.
// The bundle is nil when no bundle matches.
func (h *Handler) changeLanguage(tx *db.Tx, guildID snowflake.ID, code string) (*i18n.Bundle, Result, error) {
	bundle, ok := h.Bot.Catalog.Match(code)
	if !ok {
		return nil, ResultMessageLanguageNotFound, nil
	}
	if err := tx.SetLanguage(guildID, bundle.Code()); err != nil {
		return nil, ResultNone, err
	}
	return bundle, ResultMessageLanguageChanged, nil
}

// guildBundle ensures the guild's registry entry and returns the bundle of
// its language.
func (h *Handler) guildBundle(tx *db.Tx, guildID snowflake.ID) (*i18n.Bundle, error) {
	if _, err := tx.EnsureGuild(guildID); err != nil {
		return nil, err
	}
	language, err := tx.Language(guildID)
	if err != nil {
		return nil, err
	}
	return h.Bot.Catalog.Bundle(language), nil
}

// inTx runs f in a registry transaction and commits when f succeeds.
func (h *Handler) inTx(ctx context.Context, f func(tx *db.Tx) error) error {
	tx, err := h.Bot.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"betheprofessional-bot/pkg/config"
	"betheprofessional-bot/pkg/topics"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jmoiron/sqlx"
)

const (
	selectGuildQuery    = "SELECT guild_id FROM guild_topics WHERE guild_id = ?;"
	insertTopicsQuery   = "INSERT INTO guild_topics (guild_id, topics) VALUES (?, ?) ON CONFLICT(guild_id) DO NOTHING;"
	insertLanguageQuery = "INSERT INTO guild_languages (guild_id, language) VALUES (?, ?) ON CONFLICT(guild_id) DO NOTHING;"
	selectTopicsQuery   = "SELECT topics FROM guild_topics WHERE guild_id = ?;"
	updateTopicsQuery   = "UPDATE guild_topics SET topics = ? WHERE guild_id = ?;"
	selectLanguageQuery = "SELECT language FROM guild_languages WHERE guild_id = ?;"
	upsertLanguageQuery = "INSERT INTO guild_languages (guild_id, language) VALUES (?, ?) ON CONFLICT(guild_id) DO UPDATE SET language=excluded.language;"
	topicSeparator      = "\n"
)

// Tx is a unit of work against the registry. The context passed to DB.Begin
// bounds every statement of the transaction.
type Tx struct {
	tx       *sqlx.Tx
	defaults config.Defaults
}

func (t *Tx) IsGuild(guildID snowflake.ID) (bool, error) {
	var id int64
	err := t.tx.Get(&id, t.tx.Rebind(selectGuildQuery), int64(guildID))
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db: error while looking up guild %s: %w", guildID, err)
	}
	return true, nil
}

// AddGuild stores the default topics and language for a guild. Existing rows
// are left untouched.
func (t *Tx) AddGuild(guildID snowflake.ID) error {
	guild := t.defaults.Guild(guildID)
	if _, err := t.tx.Exec(t.tx.Rebind(insertTopicsQuery), int64(guildID), joinTopics(guild.Topics)); err != nil {
		return fmt.Errorf("db: error while adding guild %s: %w", guildID, err)
	}
	if _, err := t.tx.Exec(t.tx.Rebind(insertLanguageQuery), int64(guildID), guild.Language); err != nil {
		return fmt.Errorf("db: error while adding language of guild %s: %w", guildID, err)
	}
	return nil
}

func (t *Tx) EnsureGuild(guildID snowflake.ID) (bool, error) {
	ok, err := t.IsGuild(guildID)
	if err != nil || ok {
		return false, err
	}
	return true, t.AddGuild(guildID)
}

func (t *Tx) GuildCount() (count int, err error) {
	err = t.tx.Get(&count, countGuildsQuery)
	return
}

// Guild returns the whole registry entry, creating it first if needed.
func (t *Tx) Guild(guildID snowflake.ID) (config.Guild, error) {
	if _, err := t.EnsureGuild(guildID); err != nil {
		return config.Guild{}, err
	}
	list, err := t.Topics(guildID)
	if err != nil {
		return config.Guild{}, err
	}
	language, err := t.Language(guildID)
	if err != nil {
		return config.Guild{}, err
	}
	return config.Guild{ID: guildID, Topics: list, Language: language}, nil
}

func (t *Tx) Topics(guildID snowflake.ID) ([]string, error) {
	var raw string
	err := t.tx.Get(&raw, t.tx.Rebind(selectTopicsQuery), int64(guildID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: error while getting topics of guild %s: %w", guildID, err)
	}
	return splitTopics(raw), nil
}

// AddTopic registers topic for the guild. It reports false when a topic with
// the same name, ignoring case, already exists.
func (t *Tx) AddTopic(guildID snowflake.ID, topic string) (bool, error) {
	topic = strings.TrimSpace(topic)
	if !topics.Valid(topic) {
		return false, ErrInvalidTopic
	}
	if _, err := t.EnsureGuild(guildID); err != nil {
		return false, err
	}
	current, err := t.Topics(guildID)
	if err != nil {
		return false, err
	}
	if topics.Contains(current, topic) {
		return false, nil
	}
	return true, t.setTopics(guildID, append(current, topic))
}

// RemoveTopic unregisters topic, ignoring case. It reports false when the
// topic is not registered.
func (t *Tx) RemoveTopic(guildID snowflake.ID, topic string) (bool, error) {
	current, err := t.Topics(guildID)
	if err != nil {
		return false, err
	}
	topic = strings.TrimSpace(topic)
	if !topics.Contains(current, topic) {
		return false, nil
	}
	current = slices.DeleteFunc(current, func(s string) bool {
		return strings.EqualFold(s, topic)
	})
	return true, t.setTopics(guildID, current)
}

func (t *Tx) Language(guildID snowflake.ID) (string, error) {
	var language string
	err := t.tx.Get(&language, t.tx.Rebind(selectLanguageQuery), int64(guildID))
	if isNoRows(err) {
		return t.defaults.Language, nil
	}
	if err != nil {
		return "", fmt.Errorf("db: error while getting language of guild %s: %w", guildID, err)
	}
	return language, nil
}

func (t *Tx) SetLanguage(guildID snowflake.ID, language string) error {
	if _, err := t.tx.Exec(t.tx.Rebind(upsertLanguageQuery), int64(guildID), language); err != nil {
		return fmt.Errorf("db: error while setting language of guild %s: %w", guildID, err)
	}
	return nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("db: error while committing: %w", err)
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("db: error while rolling back: %w", err)
	}
	return nil
}

func (t *Tx) setTopics(guildID snowflake.ID, list []string) error {
	if _, err := t.tx.Exec(t.tx.Rebind(updateTopicsQuery), joinTopics(list), int64(guildID)); err != nil {
		return fmt.Errorf("db: error while updating topics of guild %s: %w", guildID, err)
	}
	return nil
}

func joinTopics(list []string) string {
	return strings.Join(list, topicSeparator)
}

func splitTopics(raw string) []string {
	var list []string
	for _, topic := range strings.Split(strings.TrimSpace(raw), topicSeparator) {
		if topic = strings.TrimSpace(topic); topic != "" {
			list = append(list, topic)
		}
	}
	return list
}

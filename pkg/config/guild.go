package config

import "github.com/disgoorg/snowflake/v2"

// Guild is the registry entry of a single guild.
type Guild struct {
	ID       snowflake.ID
	Topics   []string
	Language string
}

// Defaults are applied to a guild the first time it is seen.
type Defaults struct {
	Topics   []string
	Language string
}

func (d Defaults) Guild(guildID snowflake.ID) Guild {
	return Guild{
		ID:       guildID,
		Topics:   append([]string(nil), d.Topics...),
		Language: d.Language,
	}
}

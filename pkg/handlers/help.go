package handlers

import (
	"fmt"
	"strings"
	"time"

	"betheprofessional-bot/pkg/i18n"
)

func (h *Handler) HandleHelp(c *Context) (Reply, error) {
	if err := h.sendHelp(c); err != nil {
		return Reply{}, err
	}
	return reply(ResultHelpSent, nil)
}

// sendHelp direct-messages the help embed of the context's bundle. Outside a
// guild the default topics are listed.
func (h *Handler) sendHelp(c *Context) error {
	list := h.Bot.DB.Defaults().Topics
	if !c.IsPrivate() {
		registered, err := c.Tx.Topics(c.GuildID)
		if err != nil {
			return err
		}
		list = registered
	}
	embed, ok := c.Bundle.HelpEmbed(i18n.Args{
		"mention":         c.Author.Mention(),
		"prefix":          h.Config.Prefix,
		"language_amount": len(list),
		"commands":        h.commandHelp(c.Bundle),
		"languages":       strings.Join(list, ", "),
	}, time.Now())
	if !ok || c.SendHelp == nil {
		return nil
	}
	if err := c.SendHelp(c.Ctx, embed); err != nil {
		return fmt.Errorf("handlers: error while sending help: %w", err)
	}
	return nil
}

func (h *Handler) commandHelp(b *i18n.Bundle) string {
	lines := make([]string, 0, len(h.commands))
	for _, name := range h.commandNames() {
		line := "``" + h.Config.Prefix + name
		if syntax := b.Syntax(name); syntax != "" {
			line += " " + syntax
		}
		line += "``"
		if description := b.Description(name); description != "" {
			line += " " + description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

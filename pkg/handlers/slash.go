package handlers

import (
	"context"
	"log/slog"
	"strings"

	"betheprofessional-bot/pkg/i18n"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"
)

const slashErrorMessage = "There was an error while accessing the topic registry."

// HandleTopics lists the topics registered in the guild.
func (h *Handler) HandleTopics(c *Context) (Reply, error) {
	list, err := c.Tx.Topics(c.GuildID)
	if err != nil {
		return Reply{}, err
	}
	if len(list) == 0 {
		return reply(ResultTopicsEmpty, nil)
	}
	return reply(ResultTopicsList, i18n.Args{
		"language_amount": len(list),
		"languages":       strings.Join(list, ", "),
	})
}

func (h *Handler) HandleTopicsCommand(event *handler.CommandEvent) error {
	return h.respondSlash(event, h.topicsCommand(), "")
}

func (h *Handler) HandleLanguageCurrent(event *handler.CommandEvent) error {
	return h.respondSlash(event, h.languageCurrentCommand(), "")
}

func (h *Handler) HandleLanguageSet(data discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	return h.respondSlash(event, h.languageSetCommand(), strings.TrimSpace(data.String("code")))
}

func (h *Handler) topicsCommand() *command {
	return &command{name: "topics", run: h.HandleTopics}
}

func (h *Handler) languageCurrentCommand() *command {
	return &command{name: "language current", run: h.HandleLanguage}
}

func (h *Handler) languageSetCommand() *command {
	return &command{name: "language set", run: h.HandleLanguage, userPerms: discord.PermissionManageRoles}
}

func (h *Handler) respondSlash(event *handler.CommandEvent, cmd *command, args string) error {
	c := &Context{
		Author: event.User(),
		Args:   args,
		Roles:  event.Client().Rest,
	}
	if guildID := event.GuildID(); guildID != nil {
		c.GuildID = *guildID
	}
	if member := event.Member(); member != nil {
		c.RoleIDs = member.RoleIDs
		c.UserPermissions = member.Permissions
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return event.CreateMessage(discord.NewMessageCreate().
		WithContent(h.slashReply(ctx, cmd, c)).
		WithEphemeral(true))
}

// slashReply runs a slash command like a prefix command. Errors are logged and
// answered with a fixed message.
func (h *Handler) slashReply(ctx context.Context, cmd *command, c *Context) string {
	content, err := h.execute(ctx, cmd, c)
	if err != nil {
		slog.Error("btp: error while handling a slash command",
			slog.String("command.name", cmd.name),
			slog.Any("guild.id", c.GuildID),
			tint.Err(err))
		return slashErrorMessage
	}
	return content
}

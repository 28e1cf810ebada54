package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/util"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"
)

const commandTimeout = 30 * time.Second

func (h *Handler) OnGuildMessageCreate(ev *events.GuildMessageCreate) {
	if ev.Message.Author.Bot {
		return
	}
	cmd, args, ok := h.parse(ev.Message.Content)
	if !ok {
		return
	}
	client := ev.Client()
	channel, ok := ev.Channel()
	if !ok {
		slog.Warn("btp: channel missing in cache", slog.Any("channel.id", ev.ChannelID))
		return
	}
	selfMember, ok := client.Caches.SelfMember(ev.GuildID)
	if !ok {
		slog.Warn("btp: self member missing in cache", slog.Any("guild.id", ev.GuildID))
		return
	}
	member, ok := authorMember(ev.Message, ev.GuildID, func() (discord.Member, bool) {
		return client.Caches.Member(ev.GuildID, ev.Message.Author.ID)
	})
	if !ok {
		slog.Warn("btp: author member missing", slog.Any("guild.id", ev.GuildID), slog.Any("user.id", ev.Message.Author.ID))
		return
	}

	c := &Context{
		GuildID:         ev.GuildID,
		Author:          ev.Message.Author,
		RoleIDs:         member.RoleIDs,
		Args:            args,
		BotPermissions:  client.Caches.MemberPermissionsInChannel(channel, selfMember),
		UserPermissions: client.Caches.MemberPermissionsInChannel(channel, member),
		Roles:           client.Rest,
		SendHelp:        helpSender(client, ev.Message.Author.ID),
	}
	h.handleMessage(client, ev.ChannelID, cmd, c)
}

func (h *Handler) OnDMMessageCreate(ev *events.DMMessageCreate) {
	if ev.Message.Author.Bot {
		return
	}
	cmd, args, ok := h.parse(ev.Message.Content)
	if !ok {
		return
	}
	client := ev.Client()
	c := &Context{
		Author:   ev.Message.Author,
		Args:     args,
		SendHelp: helpSender(client, ev.Message.Author.ID),
	}
	h.handleMessage(client, ev.ChannelID, cmd, c)
}

// authorMember returns the member who sent message. The member attached to
// the message wins over the cache, which only sees role changes with the
// guild members intent.
func authorMember(message discord.Message, guildID snowflake.ID, cached func() (discord.Member, bool)) (discord.Member, bool) {
	if message.Member == nil {
		return cached()
	}
	member := *message.Member
	member.User = message.Author
	member.GuildID = guildID
	return member, true
}

func (h *Handler) handleMessage(client *bot.Client, channelID snowflake.ID, cmd *command, c *Context) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_ = h.dispatch(ctx, cmd, c, func(content string) error {
		_, err := client.Rest.CreateMessage(channelID, discord.NewMessageCreate().WithContent(content), rest.WithCtx(ctx))
		return err
	})
}

// dispatch runs cmd and hands the reply to send. Missing access is logged at
// debug level and dropped; any other error is logged and returned.
func (h *Handler) dispatch(ctx context.Context, cmd *command, c *Context, send func(content string) error) error {
	content, err := h.execute(ctx, cmd, c)
	if err == nil {
		slog.Info("btp: command executed", slog.String("command.name", cmd.name), slog.Any("guild.id", c.GuildID), slog.Any("user.id", c.Author.ID))
		if content == "" {
			return nil
		}
		err = send(content)
	}
	if err == nil {
		return nil
	}
	if util.IsForbidden(err) {
		slog.Debug("btp: missing access while running a command", slog.String("command.name", cmd.name), slog.Any("guild.id", c.GuildID), tint.Err(err))
		return nil
	}
	slog.Error("btp: error while running a command",
		slog.String("command.name", cmd.name),
		slog.Any("guild.id", c.GuildID),
		slog.Any("user.id", c.Author.ID),
		tint.Err(err))
	return err
}

// execute runs cmd and returns the rendered reply. Guild commands run in one
// registry transaction which is only committed when the command succeeds.
func (h *Handler) execute(ctx context.Context, cmd *command, c *Context) (string, error) {
	c.Ctx = ctx
	if c.IsPrivate() {
		c.Bundle = h.Bot.Catalog.Fallback()
		if !cmd.allowPrivate {
			return render(c.Bundle, Reply{Result: ResultPrivateChannel}, c.Author), nil
		}
		return h.run(cmd, c)
	}

	var content string
	err := h.inTx(ctx, func(tx *db.Tx) error {
		bundle, err := h.guildBundle(tx, c.GuildID)
		if err != nil {
			return err
		}
		c.Tx = tx
		c.Bundle = bundle
		content, err = h.run(cmd, c)
		return err
	})
	return content, err
}

func (h *Handler) run(cmd *command, c *Context) (string, error) {
	if !c.IsPrivate() {
		if cmd.botPerms != 0 && c.BotPermissions.Missing(cmd.botPerms) {
			return render(c.Bundle, Reply{Result: ResultBotNoPermission}, c.Author), nil
		}
		if cmd.userPerms != 0 && c.UserPermissions.Missing(cmd.userPerms) {
			return render(c.Bundle, Reply{Result: ResultNoPermission}, c.Author), nil
		}
	}
	r, err := cmd.run(c)
	if errors.Is(err, errMissingArgs) {
		return "", h.sendHelp(c)
	}
	if err != nil {
		return "", err
	}
	return render(c.Bundle, r, c.Author), nil
}

// helpSender direct-messages embeds to the user.
func helpSender(client *bot.Client, userID snowflake.ID) func(context.Context, discord.Embed) error {
	return func(ctx context.Context, embed discord.Embed) error {
		dm, err := client.Rest.CreateDMChannel(userID, rest.WithCtx(ctx))
		if err != nil {
			return err
		}
		_, err = client.Rest.CreateMessage(dm.ID(), discord.NewMessageCreate().WithEmbeds(embed), rest.WithCtx(ctx))
		return err
	}
}

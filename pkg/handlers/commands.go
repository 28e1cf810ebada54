package handlers

import (
	"log/slog"
	"strings"

	"betheprofessional-bot/pkg"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/omit"
	"github.com/lmittmann/tint"
)

const (
	auditLogReason = "BeTheProfessional"
)

var manageRoles = discord.PermissionManageRoles

// ApplicationCommands are the slash commands synced on startup.
var ApplicationCommands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:        "topics",
		Description: "List the topics of this server",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	},
	discord.SlashCommandCreate{
		Name:                     "language",
		Description:              "Configure the language the bot answers in",
		DefaultMemberPermissions: omit.New(&manageRoles),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "current",
				Description: "Show the current language",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set",
				Description: "Change the language",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "code",
						Description: "Language code, e.g. en or de",
						Required:    true,
					},
				},
			},
		},
	},
}

// command is a prefix command.
type command struct {
	name         string
	run          func(c *Context) (Reply, error)
	allowPrivate bool
	botPerms     discord.Permissions
	userPerms    discord.Permissions
	// hidden commands are left out of the help
	hidden bool
}

func NewHandler(b *pkg.Bot, c *pkg.Config) *Handler {
	mux := handler.New()
	mux.Error(func(e *handler.InteractionEvent, err error) {
		i := e.Interaction.(discord.ApplicationCommandInteraction)
		slog.Error("btp: error while handling a command", slog.String("command.name", i.Data.CommandName()), tint.Err(err))
		_ = e.Respond(discord.InteractionResponseTypeCreateMessage, discord.NewMessageCreate().
			WithContentf("There was an error while handling the command: %v", err).
			WithEphemeral(true))
	})
	handlers := &Handler{
		Bot:    b,
		Config: c,
		Router: mux,
	}
	handlers.commands = []command{
		{name: "+", run: handlers.HandleAddTopics, botPerms: discord.PermissionManageRoles},
		{name: "-", run: handlers.HandleRemoveTopic, botPerms: discord.PermissionManageRoles},
		{name: "*", run: handlers.HandleRegisterTopic, userPerms: discord.PermissionManageRoles},
		{name: "/", run: handlers.HandleUnregisterTopic, userPerms: discord.PermissionManageRoles},
		{name: "?", run: handlers.HandleHelp, allowPrivate: true},
		{name: "lang", run: handlers.HandleLanguage, userPerms: discord.PermissionManageRoles},
		{name: "purge", run: handlers.HandlePurge, botPerms: discord.PermissionManageRoles, userPerms: discord.PermissionManageRoles},
		{name: "delLangRanks", run: handlers.HandlePurge, botPerms: discord.PermissionManageRoles, userPerms: discord.PermissionManageRoles, hidden: true},
	}

	handlers.Group(func(r handler.Router) {
		r.Route("/language", func(r handler.Router) {
			r.Command("/current", handlers.HandleLanguageCurrent)
			r.SlashCommand("/set", handlers.HandleLanguageSet)
		})
	})
	handlers.Command("/topics", handlers.HandleTopicsCommand)
	return handlers
}

type Handler struct {
	Bot      *pkg.Bot
	Config   *pkg.Config
	commands []command
	handler.Router
}

// parse matches content against the prefix commands. Names are compared
// ignoring case, longest name first. Symbol commands need no separator from
// their arguments, word commands do.
func (h *Handler) parse(content string) (*command, string, bool) {
	body, ok := strings.CutPrefix(content, h.Config.Prefix)
	if !ok {
		return nil, "", false
	}
	var match *command
	for i := range h.commands {
		cmd := &h.commands[i]
		if !hasCommandPrefix(body, cmd.name) {
			continue
		}
		if match == nil || len(cmd.name) > len(match.name) {
			match = cmd
		}
	}
	if match == nil {
		return nil, "", false
	}
	return match, strings.TrimSpace(body[len(match.name):]), true
}

func hasCommandPrefix(body string, name string) bool {
	if len(body) < len(name) || !strings.EqualFold(body[:len(name)], name) {
		return false
	}
	if len(body) == len(name) || !isLetter(name[len(name)-1]) {
		return true
	}
	return !isLetter(body[len(name)])
}

func isLetter(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// commandNames lists the prefix commands in help order.
func (h *Handler) commandNames() []string {
	names := make([]string, 0, len(h.commands))
	for _, cmd := range h.commands {
		if !cmd.hidden {
			names = append(names, cmd.name)
		}
	}
	return names
}

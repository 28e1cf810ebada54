package handlers

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/i18n"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

var (
	errMissingArgs = errors.New("handlers: missing or invalid arguments")
)

// Result is the outcome of a command. Its value is the translation key of the
// reply.
type Result string

const (
	ResultNone                    Result = ""
	ResultLanguageNotFound        Result = "language_not_found"
	ResultUserHasLanguageAlready  Result = "user_has_language_already"
	ResultLanguageAdded           Result = "language_added"
	ResultLanguageNotExisting     Result = "language_not_existing"
	ResultLanguageNotYetRequested Result = "language_not_yet_requested"
	ResultAllLanguagesRemoved     Result = "all_languages_removed"
	ResultLanguageRemoved         Result = "language_removed"
	ResultLanguageRegistered      Result = "language_registered"
	ResultLanguageAlreadyExists   Result = "language_already_registered"
	ResultRoleAlreadyExists       Result = "create_lang_role_already_existing"
	ResultLanguageUnregistered    Result = "language_unregistered"
	ResultHelpSent                Result = "help_sent"
	ResultAllRolesRemoved         Result = "all_roles_removed"
	ResultPrivateChannel          Result = "private_channel"
	ResultBotNoPermission         Result = "bot_no_permission"
	ResultNoPermission            Result = "no_permission"
	ResultMessageLanguageCurrent  Result = "message_language_current"
	ResultMessageLanguageNotFound Result = "message_language_not_found"
	ResultMessageLanguageChanged  Result = "message_language_changed"
	ResultTopicsList              Result = "topics_list"
	ResultTopicsEmpty             Result = "topics_empty"
)

type Reply struct {
	Result Result
	Args   i18n.Args
}

func reply(result Result, args i18n.Args) (Reply, error) {
	return Reply{Result: result, Args: args}, nil
}

// render translates r with bundle. Every reply may mention its author.
func render(bundle *i18n.Bundle, r Reply, author discord.User) string {
	args := i18n.Args{"mention": author.Mention()}
	maps.Copy(args, r.Args)
	return bundle.T(string(r.Result), args)
}

// Roles is the part of the Discord REST API the topic commands need.
// rest.Rest satisfies it.
type Roles interface {
	GetRoles(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error)
	CreateRole(guildID snowflake.ID, roleCreate discord.RoleCreate, opts ...rest.RequestOpt) (*discord.Role, error)
	DeleteRole(guildID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
	AddMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
	RemoveMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// Context is everything a command runs with. GuildID is zero for direct
// messages, in which case Tx is nil. Ctx bounds the registry transaction and
// every REST call of the command.
type Context struct {
	Ctx             context.Context
	GuildID         snowflake.ID
	Author          discord.User
	RoleIDs         []snowflake.ID
	Args            string
	BotPermissions  discord.Permissions
	UserPermissions discord.Permissions

	Tx       *db.Tx
	Roles    Roles
	Bundle   *i18n.Bundle
	SendHelp func(ctx context.Context, embed discord.Embed) error
}

func (c *Context) IsPrivate() bool {
	return c.GuildID == 0
}

func (c *Context) HasRole(roleID snowflake.ID) bool {
	return slices.Contains(c.RoleIDs, roleID)
}

// requestOpts binds REST calls to the command's context.
func (c *Context) requestOpts(opts ...rest.RequestOpt) []rest.RequestOpt {
	if c.Ctx == nil {
		return opts
	}
	return append([]rest.RequestOpt{rest.WithCtx(c.Ctx)}, opts...)
}

func (c *Context) auditOpts() []rest.RequestOpt {
	return c.requestOpts(rest.WithReason(auditLogReason))
}

func findRole(roles []discord.Role, name string) (discord.Role, bool) {
	i := slices.IndexFunc(roles, func(role discord.Role) bool {
		return strings.EqualFold(role.Name, name)
	})
	if i == -1 {
		return discord.Role{}, false
	}
	return roles[i], true
}

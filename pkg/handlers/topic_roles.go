package handlers

import (
	"fmt"
	"strings"

	"betheprofessional-bot/pkg/i18n"
	"betheprofessional-bot/pkg/topics"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/json"
	"golang.org/x/sync/errgroup"
)

// HandleAddTopics gives the author the roles of one or more ";"-separated
// topics. Every topic is validated before any role is touched; missing roles
// are created on the fly.
func (h *Handler) HandleAddTopics(c *Context) (Reply, error) {
	requested := topics.Split(c.Args)
	if len(requested) == 0 {
		return Reply{}, errMissingArgs
	}
	registered, err := c.Tx.Topics(c.GuildID)
	if err != nil {
		return Reply{}, err
	}
	guildRoles, err := c.Roles.GetRoles(c.GuildID, c.requestOpts()...)
	if err != nil {
		return Reply{}, fmt.Errorf("handlers: error while getting roles: %w", err)
	}

	names := make([]string, 0, len(requested))
	var missing []string
	var roles []discord.Role
	for _, name := range requested {
		topic, ok := topics.Find(registered, name)
		if !ok {
			return reply(ResultLanguageNotFound, i18n.Args{"lang": name})
		}
		role, ok := findRole(guildRoles, topic)
		if !ok {
			missing = append(missing, topic)
		} else if c.HasRole(role.ID) {
			return reply(ResultUserHasLanguageAlready, i18n.Args{"lang": topic})
		} else {
			roles = append(roles, role)
		}
		names = append(names, topic)
	}

	for _, topic := range missing {
		role, err := c.Roles.CreateRole(c.GuildID, discord.RoleCreate{
			Name:        topic,
			Permissions: json.Ptr(discord.Permissions(0)),
			Mentionable: true,
		}, c.auditOpts()...)
		if err != nil {
			return Reply{}, fmt.Errorf("handlers: error while creating role %q: %w", topic, err)
		}
		roles = append(roles, *role)
	}

	var eg errgroup.Group
	for _, role := range roles {
		eg.Go(func() error {
			return c.Roles.AddMemberRole(c.GuildID, c.Author.ID, role.ID, c.auditOpts()...)
		})
	}
	if err := eg.Wait(); err != nil {
		return Reply{}, fmt.Errorf("handlers: error while adding roles: %w", err)
	}
	return reply(ResultLanguageAdded, i18n.Args{"lang": strings.Join(names, ", ")})
}

// HandleRemoveTopic takes a topic role away from the author. The wildcard
// removes every topic role the author has.
func (h *Handler) HandleRemoveTopic(c *Context) (Reply, error) {
	if c.Args == "" {
		return Reply{}, errMissingArgs
	}
	registered, err := c.Tx.Topics(c.GuildID)
	if err != nil {
		return Reply{}, err
	}
	guildRoles, err := c.Roles.GetRoles(c.GuildID, c.requestOpts()...)
	if err != nil {
		return Reply{}, fmt.Errorf("handlers: error while getting roles: %w", err)
	}

	if c.Args == topics.Wildcard {
		var eg errgroup.Group
		for _, role := range guildRoles {
			if !c.HasRole(role.ID) || !topics.Contains(registered, role.Name) {
				continue
			}
			eg.Go(func() error {
				return c.Roles.RemoveMemberRole(c.GuildID, c.Author.ID, role.ID, c.auditOpts()...)
			})
		}
		if err := eg.Wait(); err != nil {
			return Reply{}, fmt.Errorf("handlers: error while removing roles: %w", err)
		}
		return reply(ResultAllLanguagesRemoved, i18n.Args{"lang": c.Args})
	}

	topic, ok := topics.Find(registered, c.Args)
	if !ok {
		return reply(ResultLanguageNotExisting, i18n.Args{"lang": c.Args})
	}
	role, ok := findRole(guildRoles, topic)
	if !ok || !c.HasRole(role.ID) {
		return reply(ResultLanguageNotYetRequested, i18n.Args{"lang": topic})
	}
	if err := c.Roles.RemoveMemberRole(c.GuildID, c.Author.ID, role.ID, c.auditOpts()...); err != nil {
		return Reply{}, fmt.Errorf("handlers: error while removing role %q: %w", topic, err)
	}
	return reply(ResultLanguageRemoved, i18n.Args{"lang": topic})
}

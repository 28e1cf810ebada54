package handlers

import (
	"fmt"

	"betheprofessional-bot/pkg/i18n"
	"betheprofessional-bot/pkg/topics"

	"golang.org/x/sync/errgroup"
)

func (h *Handler) HandleRegisterTopic(c *Context) (Reply, error) {
	if !topics.Valid(c.Args) {
		return Reply{}, errMissingArgs
	}
	registered, err := c.Tx.Topics(c.GuildID)
	if err != nil {
		return Reply{}, err
	}
	if topics.Contains(registered, c.Args) {
		return reply(ResultLanguageAlreadyExists, i18n.Args{"lang": c.Args})
	}
	guildRoles, err := c.Roles.GetRoles(c.GuildID, c.requestOpts()...)
	if err != nil {
		return Reply{}, fmt.Errorf("handlers: error while getting roles: %w", err)
	}
	// a topic must not hijack an unrelated role of the same name
	if role, ok := findRole(guildRoles, c.Args); ok {
		return reply(ResultRoleAlreadyExists, i18n.Args{"role": role.Name})
	}
	added, err := c.Tx.AddTopic(c.GuildID, c.Args)
	if err != nil {
		return Reply{}, err
	}
	if !added {
		return reply(ResultLanguageAlreadyExists, i18n.Args{"lang": c.Args})
	}
	return reply(ResultLanguageRegistered, i18n.Args{"lang": c.Args})
}

func (h *Handler) HandleUnregisterTopic(c *Context) (Reply, error) {
	if c.Args == "" {
		return Reply{}, errMissingArgs
	}
	removed, err := c.Tx.RemoveTopic(c.GuildID, c.Args)
	if err != nil {
		return Reply{}, err
	}
	if !removed {
		return reply(ResultLanguageNotFound, i18n.Args{"lang": c.Args})
	}
	return reply(ResultLanguageUnregistered, i18n.Args{"lang": c.Args})
}

// HandlePurge deletes every guild role named like a registered topic. The
// topics themselves stay registered.
func (h *Handler) HandlePurge(c *Context) (Reply, error) {
	registered, err := c.Tx.Topics(c.GuildID)
	if err != nil {
		return Reply{}, err
	}
	guildRoles, err := c.Roles.GetRoles(c.GuildID, c.requestOpts()...)
	if err != nil {
		return Reply{}, fmt.Errorf("handlers: error while getting roles: %w", err)
	}
	var eg errgroup.Group
	for _, role := range guildRoles {
		if !topics.Contains(registered, role.Name) {
			continue
		}
		eg.Go(func() error {
			return c.Roles.DeleteRole(c.GuildID, role.ID, c.auditOpts()...)
		})
	}
	if err := eg.Wait(); err != nil {
		return Reply{}, fmt.Errorf("handlers: error while deleting roles: %w", err)
	}
	return reply(ResultAllRolesRemoved, nil)
}

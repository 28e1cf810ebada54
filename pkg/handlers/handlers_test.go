package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"betheprofessional-bot/assets"
	"betheprofessional-bot/pkg"
	"betheprofessional-bot/pkg/config"
	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/i18n"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID  snowflake.ID = 140590364296429568
	testAuthorID snowflake.ID = 184751382345449473
)

var (
	errRest      = errors.New("rest: service unavailable")
	errForbidden = &rest.Error{Response: &http.Response{StatusCode: http.StatusForbidden}}
)

type ctxKey struct{}

type fakeRoles struct {
	mu      sync.Mutex
	nextID  snowflake.ID
	roles   []discord.Role
	members map[snowflake.ID][]snowflake.ID
	deleted []string
	err     error
	ctxs    []context.Context
}

func newFakeRoles(names ...string) *fakeRoles {
	f := &fakeRoles{nextID: 1000, members: map[snowflake.ID][]snowflake.ID{}}
	for _, name := range names {
		f.addRole(name)
	}
	return f
}

func (f *fakeRoles) addRole(name string) discord.Role {
	f.nextID++
	role := discord.Role{ID: f.nextID, Name: name}
	f.roles = append(f.roles, role)
	return role
}

func (f *fakeRoles) role(name string) discord.Role {
	role, _ := findRole(f.roles, name)
	return role
}

func (f *fakeRoles) memberRoles(userID snowflake.ID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, roleID := range f.members[userID] {
		for _, role := range f.roles {
			if role.ID == roleID {
				names = append(names, role.Name)
			}
		}
	}
	slices.Sort(names)
	return names
}

func (f *fakeRoles) GetRoles(_ snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rq, _ := http.NewRequest(http.MethodGet, "https://discord.com/api/v10/guilds", nil)
	cfg := &rest.RequestConfig{Request: rq}
	for _, opt := range opts {
		opt(cfg)
	}
	f.ctxs = append(f.ctxs, cfg.Ctx)
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.roles), nil
}

func (f *fakeRoles) CreateRole(_ snowflake.ID, roleCreate discord.RoleCreate, _ ...rest.RequestOpt) (*discord.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role := f.addRole(roleCreate.Name)
	return &role, nil
}

func (f *fakeRoles) DeleteRole(_ snowflake.ID, roleID snowflake.ID, _ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = slices.DeleteFunc(f.roles, func(role discord.Role) bool {
		if role.ID == roleID {
			f.deleted = append(f.deleted, role.Name)
			return true
		}
		return false
	})
	return nil
}

func (f *fakeRoles) AddMemberRole(_ snowflake.ID, userID snowflake.ID, roleID snowflake.ID, _ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userID] = append(f.members[userID], roleID)
	return nil
}

func (f *fakeRoles) RemoveMemberRole(_ snowflake.ID, userID snowflake.ID, roleID snowflake.ID, _ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userID] = slices.DeleteFunc(f.members[userID], func(id snowflake.ID) bool {
		return id == roleID
	})
	return nil
}

type testEnv struct {
	h     *Handler
	roles *fakeRoles
	help  []discord.Embed
}

func setupTest(t *testing.T, roleNames ...string) *testEnv {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "registry.db"), config.Defaults{
		Topics:   []string{"Go", "Python", "Rust"},
		Language: "en",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})
	catalog, err := i18n.LoadCatalog(assets.FS(), assets.LangDir, "en")
	require.NoError(t, err)

	return &testEnv{
		h:     NewHandler(&pkg.Bot{DB: d, Catalog: catalog}, &pkg.Config{Prefix: "."}),
		roles: newFakeRoles(roleNames...),
	}
}

func (e *testEnv) context(roleIDs ...snowflake.ID) *Context {
	return &Context{
		GuildID:         testGuildID,
		Author:          discord.User{ID: testAuthorID, Username: "gopher"},
		RoleIDs:         roleIDs,
		BotPermissions:  discord.PermissionManageRoles,
		UserPermissions: discord.PermissionManageRoles,
		Roles:           e.roles,
		SendHelp: func(_ context.Context, embed discord.Embed) error {
			e.help = append(e.help, embed)
			return nil
		},
	}
}

func (e *testEnv) exec(t *testing.T, c *Context, content string) string {
	t.Helper()
	cmd, args, ok := e.h.parse(content)
	require.True(t, ok, "no command in %q", content)
	c.Args = args
	reply, err := e.h.execute(context.Background(), cmd, c)
	require.NoError(t, err)
	return reply
}

func (e *testEnv) topics(t *testing.T) []string {
	t.Helper()
	tx, err := e.h.Bot.DB.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	list, err := tx.Topics(testGuildID)
	require.NoError(t, err)
	return list
}

func TestParse(t *testing.T) {
	e := setupTest(t)

	for _, tc := range []struct {
		content string
		name    string
		args    string
	}{
		{".+ Go;Rust", "+", "Go;Rust"},
		{".+go", "+", "go"},
		{".- *", "-", "*"},
		{".-*", "-", "*"},
		{".* Kotlin", "*", "Kotlin"},
		{"./ Kotlin", "/", "Kotlin"},
		{".?", "?", ""},
		{".lang", "lang", ""},
		{".LANG en", "lang", "en"},
		{".purge", "purge", ""},
	} {
		cmd, args, ok := e.h.parse(tc.content)
		require.True(t, ok, tc.content)
		assert.Equal(t, tc.name, cmd.name, tc.content)
		assert.Equal(t, tc.args, args, tc.content)
	}

	for _, content := range []string{"", "+ Go", ".", ".language en", ".purges", "hello"} {
		_, _, ok := e.h.parse(content)
		assert.False(t, ok, content)
	}
}

func TestAddTopics(t *testing.T) {
	e := setupTest(t, "Python")

	reply := e.exec(t, e.context(), ".+ go; python")
	assert.Equal(t, "<@184751382345449473> You now have `Go, Python`.", reply)
	assert.Equal(t, []string{"Go", "Python"}, e.roles.memberRoles(testAuthorID))
	assert.Equal(t, discord.Role{ID: 1001, Name: "Python"}, e.roles.role("python"))
}

func TestAddTopicsValidatesFirst(t *testing.T) {
	e := setupTest(t, "Go")

	reply := e.exec(t, e.context(), ".+ rust;cobol")
	assert.Equal(t, "<@184751382345449473> The language `cobol` is not registered.", reply)
	assert.Empty(t, e.roles.memberRoles(testAuthorID))
	assert.Len(t, e.roles.roles, 1)

	reply = e.exec(t, e.context(e.roles.role("Go").ID), ".+ rust;go")
	assert.Equal(t, "<@184751382345449473> You already have the language `Go`.", reply)
	assert.Empty(t, e.roles.memberRoles(testAuthorID))
}

func TestRemoveTopic(t *testing.T) {
	e := setupTest(t, "Go", "Rust", "Moderator")
	goRole := e.roles.role("Go")
	rustRole := e.roles.role("Rust")
	modRole := e.roles.role("Moderator")
	e.roles.members[testAuthorID] = []snowflake.ID{goRole.ID, rustRole.ID, modRole.ID}

	reply := e.exec(t, e.context(goRole.ID, modRole.ID), ".- python")
	assert.Equal(t, "<@184751382345449473> You don't have the language `Python`.", reply)

	reply = e.exec(t, e.context(goRole.ID, modRole.ID), ".- cobol")
	assert.Equal(t, "<@184751382345449473> The language `cobol` does not exist.", reply)

	reply = e.exec(t, e.context(goRole.ID, rustRole.ID, modRole.ID), ".- GO")
	assert.Equal(t, "<@184751382345449473> `Go` has been removed from you.", reply)
	assert.Equal(t, []string{"Moderator", "Rust"}, e.roles.memberRoles(testAuthorID))

	reply = e.exec(t, e.context(rustRole.ID, modRole.ID), ".- *")
	assert.Equal(t, "<@184751382345449473> All of your languages have been removed.", reply)
	assert.Equal(t, []string{"Moderator"}, e.roles.memberRoles(testAuthorID))
}

func TestRegisterTopic(t *testing.T) {
	e := setupTest(t, "Java")

	reply := e.exec(t, e.context(), ".* Kotlin")
	assert.Equal(t, "<@184751382345449473> The language `Kotlin` has been registered.", reply)
	assert.Equal(t, []string{"Go", "Python", "Rust", "Kotlin"}, e.topics(t))

	reply = e.exec(t, e.context(), ".* kotlin")
	assert.Equal(t, "<@184751382345449473> The language `kotlin` is already registered.", reply)

	reply = e.exec(t, e.context(), ".* java")
	assert.Equal(t, "<@184751382345449473> There already is a role called `Java`.", reply)
	assert.Equal(t, []string{"Go", "Python", "Rust", "Kotlin"}, e.topics(t))

	// names the add and remove commands could not address are answered with the help
	for _, content := range []string{".* Go;Rust2", ".* *"} {
		assert.Empty(t, e.exec(t, e.context(), content), content)
	}
	assert.Len(t, e.help, 2)
	assert.Equal(t, []string{"Go", "Python", "Rust", "Kotlin"}, e.topics(t))
}

func TestUnregisterTopic(t *testing.T) {
	e := setupTest(t, "Rust")

	reply := e.exec(t, e.context(), "./ rust")
	assert.Equal(t, "<@184751382345449473> The language `rust` has been unregistered.", reply)
	assert.Equal(t, []string{"Go", "Python"}, e.topics(t))
	assert.Len(t, e.roles.roles, 1)

	reply = e.exec(t, e.context(), "./ rust")
	assert.Equal(t, "<@184751382345449473> The language `rust` is not registered.", reply)
}

func TestPurge(t *testing.T) {
	e := setupTest(t, "Go", "Moderator", "rust")

	reply := e.exec(t, e.context(), ".purge")
	assert.Equal(t, "<@184751382345449473> All language roles have been deleted.", reply)
	slices.Sort(e.roles.deleted)
	assert.Equal(t, []string{"Go", "rust"}, e.roles.deleted)
	assert.Equal(t, []string{"Go", "Python", "Rust"}, e.topics(t))
}

func TestPurgeAlias(t *testing.T) {
	e := setupTest(t, "Go", "Moderator")

	reply := e.exec(t, e.context(), ".dellangranks")
	assert.Equal(t, "<@184751382345449473> All language roles have been deleted.", reply)
	assert.Equal(t, []string{"Go"}, e.roles.deleted)
}

func TestHelp(t *testing.T) {
	e := setupTest(t)

	reply := e.exec(t, e.context(), ".?")
	assert.Equal(t, "<@184751382345449473> I sent you the help in a direct message.", reply)
	require.Len(t, e.help, 1)
	embed := e.help[0]
	assert.Equal(t, "BeTheProfessional", embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Value, "``.+ <language>[;<language>...]`` Gives you the role of a language.")
	assert.NotContains(t, embed.Fields[0].Value, "delLangRanks")
	assert.Equal(t, "Languages (3)", embed.Fields[1].Name)
	assert.Equal(t, "Go, Python, Rust", embed.Fields[1].Value)
}

func TestMissingArgsSendsHelp(t *testing.T) {
	e := setupTest(t)

	reply := e.exec(t, e.context(), ".+")
	assert.Empty(t, reply)
	assert.Len(t, e.help, 1)
}

func TestDirectMessages(t *testing.T) {
	e := setupTest(t)
	c := e.context()
	c.GuildID = 0

	reply := e.exec(t, c, ".+ go")
	assert.Equal(t, "<@184751382345449473> This command only works on a server.", reply)

	c = e.context()
	c.GuildID = 0
	reply = e.exec(t, c, ".?")
	assert.Equal(t, "<@184751382345449473> I sent you the help in a direct message.", reply)
	require.Len(t, e.help, 1)
	assert.Equal(t, "Go, Python, Rust", e.help[0].Fields[1].Value)
}

func TestPermissions(t *testing.T) {
	e := setupTest(t)

	c := e.context()
	c.BotPermissions = discord.PermissionSendMessages
	reply := e.exec(t, c, ".+ go")
	assert.Equal(t, "<@184751382345449473> I am missing the `Manage Roles` permission.", reply)

	c = e.context()
	c.UserPermissions = discord.PermissionSendMessages
	reply = e.exec(t, c, ".* Kotlin")
	assert.Equal(t, "<@184751382345449473> You are missing the `Manage Roles` permission.", reply)
	assert.Equal(t, []string{"Go", "Python", "Rust"}, e.topics(t))
}

func TestLanguage(t *testing.T) {
	e := setupTest(t)

	reply := e.exec(t, e.context(), ".lang")
	assert.Equal(t, "<@184751382345449473> This server's language is `en`. Available: de, en", reply)

	reply = e.exec(t, e.context(), ".lang fr")
	assert.Equal(t, "<@184751382345449473> There is no language `fr`. Available: de, en", reply)

	reply = e.exec(t, e.context(), ".lang de-AT")
	assert.Equal(t, "<@184751382345449473> Ich antworte ab jetzt auf `de`.", reply)

	reply = e.exec(t, e.context(), ".?")
	assert.Equal(t, "<@184751382345449473> Ich habe dir eine Hilfe per Direktnachricht geschickt.", reply)
}

func TestFailedCommandRollsBack(t *testing.T) {
	e := setupTest(t)
	e.roles.err = errRest

	cmd, args, ok := e.h.parse(".+ go")
	require.True(t, ok)
	c := e.context()
	c.Args = args
	_, err := e.h.execute(context.Background(), cmd, c)
	require.ErrorIs(t, err, errRest)

	tx, err := e.h.Bot.DB.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	isGuild, err := tx.IsGuild(testGuildID)
	require.NoError(t, err)
	assert.False(t, isGuild)
}

func TestRender(t *testing.T) {
	e := setupTest(t)

	content := render(e.h.Bot.Catalog.Fallback(), Reply{Result: ResultTopicsList, Args: i18n.Args{
		"language_amount": 2,
		"languages":       "Go, Rust",
	}}, discord.User{ID: testAuthorID})
	assert.Equal(t, "Registered languages (2): Go, Rust", content)
}

func TestAuthorMember(t *testing.T) {
	goRole := snowflake.ID(2001)
	staleRole := snowflake.ID(2002)
	author := discord.User{ID: testAuthorID, Username: "gopher"}
	cached := func() (discord.Member, bool) {
		return discord.Member{User: author, GuildID: testGuildID, RoleIDs: []snowflake.ID{staleRole}}, true
	}

	member, ok := authorMember(discord.Message{
		Author: author,
		Member: &discord.Member{RoleIDs: []snowflake.ID{goRole}},
	}, testGuildID, cached)
	require.True(t, ok)
	assert.Equal(t, []snowflake.ID{goRole}, member.RoleIDs)
	assert.Equal(t, author, member.User)
	assert.Equal(t, testGuildID, member.GuildID)

	member, ok = authorMember(discord.Message{Author: author}, testGuildID, cached)
	require.True(t, ok)
	assert.Equal(t, []snowflake.ID{staleRole}, member.RoleIDs)

	_, ok = authorMember(discord.Message{Author: author}, testGuildID, func() (discord.Member, bool) {
		return discord.Member{}, false
	})
	assert.False(t, ok)
}

func TestRequestsUseCommandContext(t *testing.T) {
	e := setupTest(t, "Go")
	ctx := context.WithValue(context.Background(), ctxKey{}, "add")

	cmd, args, ok := e.h.parse(".+ go")
	require.True(t, ok)
	c := e.context()
	c.Args = args
	_, err := e.h.execute(ctx, cmd, c)
	require.NoError(t, err)

	require.Len(t, e.roles.ctxs, 1)
	require.NotNil(t, e.roles.ctxs[0])
	assert.Equal(t, "add", e.roles.ctxs[0].Value(ctxKey{}))
}

func TestDispatch(t *testing.T) {
	for _, tc := range []struct {
		name     string
		rolesErr error
		sendErr  error
		wantErr  error
		wantSent bool
	}{
		{name: "reply sent", wantSent: true},
		{name: "forbidden reply", sendErr: errForbidden, wantSent: true},
		{name: "failed reply", sendErr: errRest, wantErr: errRest, wantSent: true},
		{name: "forbidden command", rolesErr: errForbidden},
		{name: "failed command", rolesErr: errRest, wantErr: errRest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := setupTest(t)
			e.roles.err = tc.rolesErr
			cmd, args, ok := e.h.parse(".+ go")
			require.True(t, ok)
			c := e.context()
			c.Args = args

			var sent []string
			err := e.h.dispatch(context.Background(), cmd, c, func(content string) error {
				sent = append(sent, content)
				return tc.sendErr
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tc.wantSent {
				assert.Equal(t, []string{"<@184751382345449473> You now have `Go`."}, sent)
			} else {
				assert.Empty(t, sent)
			}
		})
	}
}

func TestSlashReply(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cmd     func(h *Handler) *command
		args    string
		private bool
		perms   discord.Permissions
		setup   func(t *testing.T, e *testEnv)
		want    string
	}{
		{
			name: "topics",
			cmd:  (*Handler).topicsCommand,
			want: "Registered languages (3): Go, Python, Rust",
		},
		{
			name: "no topics",
			cmd:  (*Handler).topicsCommand,
			setup: func(t *testing.T, e *testEnv) {
				for _, content := range []string{"./ go", "./ python", "./ rust"} {
					e.exec(t, e.context(), content)
				}
			},
			want: "No languages are registered on this server.",
		},
		{
			name: "current language",
			cmd:  (*Handler).languageCurrentCommand,
			want: "<@184751382345449473> This server's language is `en`. Available: de, en",
		},
		{
			name:  "set language without permission",
			cmd:   (*Handler).languageSetCommand,
			args:  "de",
			perms: discord.PermissionSendMessages,
			want:  "<@184751382345449473> You are missing the `Manage Roles` permission.",
		},
		{
			name:  "set language",
			cmd:   (*Handler).languageSetCommand,
			args:  "de",
			perms: discord.PermissionManageRoles,
			want:  "<@184751382345449473> Ich antworte ab jetzt auf `de`.",
		},
		{
			name:  "set unknown language",
			cmd:   (*Handler).languageSetCommand,
			args:  "fr",
			perms: discord.PermissionManageRoles,
			want:  "<@184751382345449473> There is no language `fr`. Available: de, en",
		},
		{
			name:    "direct message",
			cmd:     (*Handler).topicsCommand,
			private: true,
			want:    "<@184751382345449473> This command only works on a server.",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := setupTest(t)
			if tc.setup != nil {
				tc.setup(t, e)
			}
			c := &Context{
				GuildID:         testGuildID,
				Author:          discord.User{ID: testAuthorID},
				Args:            tc.args,
				UserPermissions: tc.perms,
				Roles:           e.roles,
			}
			if tc.private {
				c.GuildID = 0
			}
			assert.Equal(t, tc.want, e.h.slashReply(context.Background(), tc.cmd(e.h), c))
		})
	}
}

func TestSlashReplyRegistryError(t *testing.T) {
	e := setupTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Context{GuildID: testGuildID, Author: discord.User{ID: testAuthorID}}
	assert.Equal(t, slashErrorMessage, e.h.slashReply(ctx, e.h.topicsCommand(), c))
}

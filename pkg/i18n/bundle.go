package i18n

import (
	"fmt"
	"regexp"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/json"
	"golang.org/x/text/language"
)

const (
	keyCommands  = "commands"
	keyHelpEmbed = "help_embed"
)

var (
	placeholderRegex = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)
)

// Args are the values substituted into "{name}" placeholders.
type Args map[string]any

// Format replaces every "{name}" placeholder with its value in args. Unknown
// placeholders are kept verbatim.
func Format(template string, args Args) string {
	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		if v, ok := args[match[1:len(match)-1]]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}

// Bundle holds the messages of one locale.
type Bundle struct {
	Tag language.Tag

	messages     map[string]string
	syntax       map[string]string
	descriptions map[string]string
	helpEmbed    *HelpEmbed
}

type HelpEmbed struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Color       int         `json:"color"`
	Fields      []HelpField `json:"fields"`
	Footer      *HelpFooter `json:"footer"`
	Timestamp   string      `json:"timestamp"`
}

type HelpField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type HelpFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url"`
}

type bundleFile struct {
	Commands struct {
		Syntax      map[string]string `json:"syntax"`
		Description map[string]string `json:"description"`
	} `json:"commands"`
	HelpEmbed *HelpEmbed `json:"help_embed"`
}

// ParseBundle decodes a translation file. Top-level string values are
// message templates; "commands" and "help_embed" are structured.
func ParseBundle(code string, data []byte) (*Bundle, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("i18n: invalid language code %q: %w", code, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: error while decoding bundle %q: %w", code, err)
	}
	var file bundleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("i18n: error while decoding bundle %q: %w", code, err)
	}
	messages := make(map[string]string, len(raw))
	for key, v := range raw {
		if key == keyCommands || key == keyHelpEmbed {
			continue
		}
		if s, ok := v.(string); ok {
			messages[key] = s
		}
	}
	return &Bundle{
		Tag:          tag,
		messages:     messages,
		syntax:       file.Commands.Syntax,
		descriptions: file.Commands.Description,
		helpEmbed:    file.HelpEmbed,
	}, nil
}

func (b *Bundle) Code() string {
	return b.Tag.String()
}

func (b *Bundle) Has(key string) bool {
	_, ok := b.messages[key]
	return ok
}

// T renders the message template stored under key. Missing keys render empty.
func (b *Bundle) T(key string, args Args) string {
	return Format(b.messages[key], args)
}

func (b *Bundle) Syntax(command string) string {
	return b.syntax[command]
}

func (b *Bundle) Description(command string) string {
	return b.descriptions[command]
}

// HelpEmbed renders the help embed of the bundle, if it has one.
func (b *Bundle) HelpEmbed(args Args, now time.Time) (discord.Embed, bool) {
	help := b.helpEmbed
	if help == nil {
		return discord.Embed{}, false
	}
	builder := discord.NewEmbedBuilder()
	builder.SetTitle(Format(help.Title, args))
	builder.SetDescription(Format(help.Description, args))
	builder.SetURL(help.URL)
	builder.SetColor(help.Color)
	for _, field := range help.Fields {
		if field.Name == "" || field.Value == "" {
			continue
		}
		builder.AddField(Format(field.Name, args), Format(field.Value, args), field.Inline)
	}
	if help.Footer != nil {
		builder.SetFooter(Format(help.Footer.Text, args), help.Footer.IconURL)
	}
	if help.Timestamp != "" {
		builder.SetTimestamp(now)
	}
	return builder.Build(), true
}

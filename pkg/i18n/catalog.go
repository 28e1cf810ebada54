// Package i18n loads the per-locale translation bundles and picks the bundle
// a guild's replies are rendered with.
package i18n

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/language"
)

const bundleExt = ".json"

var (
	ErrNoBundles       = errors.New("i18n: no translation bundles found")
	ErrUnknownLanguage = errors.New("i18n: unknown language")
)

// Catalog is the set of loaded bundles.
type Catalog struct {
	fallback *Bundle
	bundles  []*Bundle
	matcher  language.Matcher
}

// NewCatalog builds a catalog whose fallback is the bundle matching
// fallbackCode.
func NewCatalog(fallbackCode string, bundles ...*Bundle) (*Catalog, error) {
	if len(bundles) == 0 {
		return nil, ErrNoBundles
	}
	bundles = slices.Clone(bundles)
	slices.SortFunc(bundles, func(a, b *Bundle) int {
		return strings.Compare(a.Code(), b.Code())
	})
	c := &Catalog{bundles: bundles}
	c.matcher = language.NewMatcher(c.tags())

	fallback, ok := c.Match(fallbackCode)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no bundle", ErrUnknownLanguage, fallbackCode)
	}
	// the matcher falls back to its first tag
	c.fallback = fallback
	c.bundles = append([]*Bundle{fallback}, slices.DeleteFunc(slices.Clone(bundles), func(b *Bundle) bool {
		return b == fallback
	})...)
	c.matcher = language.NewMatcher(c.tags())
	return c, nil
}

func (c *Catalog) tags() []language.Tag {
	tags := make([]language.Tag, len(c.bundles))
	for i, b := range c.bundles {
		tags[i] = b.Tag
	}
	return tags
}

// Match returns the bundle closest to code. ok is false when code is not a
// language tag or no bundle is close enough.
func (c *Catalog) Match(code string) (*Bundle, bool) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return nil, false
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return nil, false
	}
	return c.bundles[index], true
}

// Bundle is like Match but answers with the fallback bundle when nothing
// matches.
func (c *Catalog) Bundle(code string) *Bundle {
	if b, ok := c.Match(code); ok {
		return b
	}
	return c.fallback
}

func (c *Catalog) Fallback() *Bundle {
	return c.fallback
}

// Codes lists the available language codes, sorted.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.bundles))
	for i, b := range c.bundles {
		codes[i] = b.Code()
	}
	slices.Sort(codes)
	return codes
}

// Load reads every "<code>.json" bundle in dir.
func Load(fs afero.Fs, dir string) ([]*Bundle, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: error while reading %q: %w", dir, err)
	}
	var bundles []*Bundle
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != bundleExt {
			continue
		}
		data, err := afero.ReadFile(fs, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("i18n: error while reading %q: %w", name, err)
		}
		b, err := ParseBundle(strings.TrimSuffix(name, bundleExt), data)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoBundles, dir)
	}
	return bundles, nil
}

// LoadCatalog is Load followed by NewCatalog.
func LoadCatalog(fs afero.Fs, dir string, fallbackCode string) (*Catalog, error) {
	bundles, err := Load(fs, dir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(fallbackCode, bundles...)
}

// Package i18n localizes the notifications of the escape protocol.
//
// Messages are YAML files, one per locale, registered into an x/text message
// catalog. The engine only ever emits domain.MessageKey values; this package turns
// them into text for a player.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale; every other locale falls back to it.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds every loaded locale.
type Catalog struct {
	builder *catalog.Builder
	locales map[string]map[string]string
	tags    []language.Tag
}

// LoadEmbedded loads the catalogs shipped with this package.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads every locales/*.yaml file of fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		locales: make(map[string]map[string]string),
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := c.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return c, nil
}

func (c *Catalog) add(p string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if locale != fromPath {
		return fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, fromPath)
	}
	if _, exists := c.locales[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", p, locale)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale tag %q: %w", p, locale, err)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		messages[key] = value
		if err := c.builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: register %q: %w", p, key, err)
		}
	}
	c.locales[locale] = messages
	c.tags = append(c.tags, tag)
	return nil
}

// Locales returns all available locale identifiers.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for locale := range c.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Keys returns the message keys of a locale, sorted.
func (c *Catalog) Keys(locale string) []string {
	messages := c.locales[locale]
	out := make([]string, 0, len(messages))
	for key := range messages {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Printer returns a printer for the closest supported locale.
func (c *Catalog) Printer(locale string) *message.Printer {
	tag := language.MustParse(BaseLocale)
	if requested, err := language.Parse(locale); err == nil {
		supported := c.supported()
		_, idx, confidence := language.NewMatcher(supported).Match(requested)
		if confidence != language.No {
			tag = supported[idx]
		}
	}
	return message.NewPrinter(tag, message.Catalog(c.builder))
}

// supported lists the base locale first so the matcher defaults to it.
func (c *Catalog) supported() []language.Tag {
	base := language.MustParse(BaseLocale)
	out := []language.Tag{base}
	for _, t := range c.tags {
		if t != base {
			out = append(out, t)
		}
	}
	return out
}

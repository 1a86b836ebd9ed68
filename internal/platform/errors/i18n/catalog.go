// Package i18n renders coded errors as localized player-facing messages.
package i18n

import (
	"bytes"
	"errors"
	"text/template"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
	i18ncatalog "github.com/louisbranch/cardguess/internal/platform/i18n/catalog"
)

// Namespace holds error templates in the locale catalogs, keyed by code,
// e.g. "errors.INVALID_BIAS".
const Namespace = "errors"

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[apperrors.Code]string
}

// FromBundle builds the catalog for the bundle locale that best matches
// locale.
func FromBundle(bundle *i18ncatalog.Bundle, locale string) *Catalog {
	resolved := bundle.Match(locale)
	messages := make(map[apperrors.Code]string)
	for code, tmpl := range bundle.NamespaceMessages(resolved, Namespace) {
		messages[apperrors.Code(code)] = tmpl
	}
	return NewCatalog(resolved, messages)
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[apperrors.Code]string) *Catalog {
	cloned := make(map[apperrors.Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{
		locale:   locale,
		messages: cloned,
	}
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the template for code with metadata. Unknown codes render
// as the code itself; missing metadata renders empty.
func (c *Catalog) Format(code apperrors.Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return string(code)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// Localize renders err for a player. Errors without a domain code, or with
// a code the catalog lacks, keep their own text.
func (c *Catalog) Localize(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		return err.Error()
	}
	if _, ok := c.messages[domainErr.Code]; !ok {
		return err.Error()
	}
	return c.Format(domainErr.Code, domainErr.Metadata)
}

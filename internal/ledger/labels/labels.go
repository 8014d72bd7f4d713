// Package labels renders the localized display names given to system accounts.
package labels

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for system account names.
const (
	KeyReceivable     = "account.accounts_receivable.currency"
	KeyReceivableBase = "account.accounts_receivable"
	KeyPayable        = "account.accounts_payable.currency"
	KeyPayableBase    = "account.accounts_payable"
	kindReceivable    = "accounts-receivable"
	kindPayable       = "accounts-payable"
)

var supported = []language.Tag{language.English, language.Indonesian}

type entry struct {
	tag language.Tag
	key string
	msg string
}

var entries = []entry{
	{language.English, KeyReceivable, "Accounts Receivable (%s)"},
	{language.English, KeyReceivableBase, "Accounts Receivable"},
	{language.English, KeyPayable, "Accounts Payable (%s)"},
	{language.English, KeyPayableBase, "Accounts Payable"},
	{language.Indonesian, KeyReceivable, "Piutang Usaha (%s)"},
	{language.Indonesian, KeyReceivableBase, "Piutang Usaha"},
	{language.Indonesian, KeyPayable, "Utang Usaha (%s)"},
	{language.Indonesian, KeyPayableBase, "Utang Usaha"},
}

// Labeler formats system account names for one locale.
type Labeler struct {
	tag     language.Tag
	printer *message.Printer
}

// New builds a Labeler for the given BCP 47 locale, falling back to English
// when the locale is empty or unsupported.
func New(locale string) (*Labeler, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, e := range entries {
		if err := builder.SetString(e.tag, e.key, e.msg); err != nil {
			return nil, fmt.Errorf("labels: register %s/%s: %w", e.tag, e.key, err)
		}
	}
	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("labels: parse locale %q: %w", locale, err)
		}
		_, idx, _ := language.NewMatcher(supported).Match(parsed)
		tag = supported[idx]
	}
	return &Labeler{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}, nil
}

// Locale reports the tag the labeler renders in.
func (l *Labeler) Locale() language.Tag {
	return l.tag
}

// SystemAccountName renders the name of a receivable or payable account. An
// empty currency renders the unscoped form. Unknown kinds are echoed back.
func (l *Labeler) SystemAccountName(kind, currencyCode string) string {
	var key, base string
	switch kind {
	case kindReceivable:
		key, base = KeyReceivable, KeyReceivableBase
	case kindPayable:
		key, base = KeyPayable, KeyPayableBase
	default:
		return kind
	}
	if currencyCode == "" {
		return l.printer.Sprintf(base)
	}
	return l.printer.Sprintf(key, currencyCode)
}

package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/boijuny/chorizoventures/internal/config"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages user-facing API strings. Catalogs are embedded so the
// binary carries its own translations.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	languages       []string
	localizers      map[string]*i18n.Localizer
	matcher         language.Matcher
}

// NewLocalizer creates a new localizer from configuration.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	localizers := make(map[string]*i18n.Localizer)
	tags := make([]language.Tag, 0, len(cfg.Languages))

	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language %s: %w", lang, err)
		}
		localizers[lang] = i18n.NewLocalizer(bundle, lang)

		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language tag %s: %w", lang, err)
		}
		tags = append(tags, tag)
	}

	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %s not in configured languages", cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		languages:       cfg.Languages,
		localizers:      localizers,
		matcher:         language.NewMatcher(tags),
	}, nil
}

// Get returns a localized message.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// FromAcceptLanguage picks the best configured language for an
// Accept-Language header value. An empty or unparsable header yields the
// default language.
func (l *Localizer) FromAcceptLanguage(header string) string {
	if header == "" {
		return l.defaultLanguage
	}

	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		return l.defaultLanguage
	}

	_, index, confidence := l.matcher.Match(desired...)
	if confidence == language.No {
		return l.defaultLanguage
	}
	return l.languages[index]
}

// Message IDs
const (
	MsgRateLimitExceeded       = "rate_limit_exceeded"
	MsgRateLimitDetails        = "rate_limit_details"
	MsgInvalidRequest          = "invalid_request"
	MsgInvalidBody             = "invalid_body"
	MsgMissingFields           = "missing_fields"
	MsgMessageTooLong          = "message_too_long"
	MsgInvalidMode             = "invalid_mode"
	MsgInvalidHistory          = "invalid_history"
	MsgMethodNotAllowed        = "method_not_allowed"
	MsgMethodNotAllowedDetails = "method_not_allowed_details"
	MsgNotFound                = "not_found"
	MsgInternalError           = "internal_error"
	MsgInternalErrorDetails    = "internal_error_details"
)

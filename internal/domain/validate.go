package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen        = 50
	maxIconRunes      = 4
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

func checkName(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return invalid(field + " is required")
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return invalid(field + " must be 50 characters or less")
	}
	return nil
}

func checkIcon(v string) error {
	if v == "" {
		return invalid("icon is required")
	}
	if utf8.RuneCountInString(v) > maxIconRunes {
		return invalid("icon must be an emoji")
	}
	return nil
}

func checkTitle(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return invalid("title is required")
	}
	if utf8.RuneCountInString(v) > maxTitleLen {
		return invalid("title must be 100 characters or less")
	}
	return nil
}

func checkURL(v string) error {
	if v == "" {
		return invalid("url is required")
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("url must be absolute")
	}
	return nil
}

func checkDescription(v *string) error {
	if v != nil && utf8.RuneCountInString(*v) > maxDescriptionLen {
		return invalid("description must be 500 characters or less")
	}
	return nil
}

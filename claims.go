package authrelay

import "strings"

// claimLocaleSeparator splits a requested claim name from its language tag,
// e.g. "family_name#ja".
const claimLocaleSeparator = "#"

// ClaimCollector resolves requested claim names into values by querying a
// UserClaimProvider, applying locale fallback. It is deterministic and holds
// no state across calls.
type ClaimCollector struct {
	provider UserClaimProvider
}

// NewClaimCollector creates a collector over the given provider.
func NewClaimCollector(provider UserClaimProvider) *ClaimCollector {
	return &ClaimCollector{provider: provider}
}

// Collect resolves claimNames for subject and returns the collected values.
// A nil map means no claims were collected, which is distinct from an empty
// request producing an empty map: callers must omit the claims parameter
// entirely in that case.
//
// A claim name may carry an explicit language tag after "#". An explicit tag
// is queried exactly once and suppresses locale fallback; untagged names are
// tried against each preferred locale in order and finally without a tag.
func (c *ClaimCollector) Collect(subject string, claimNames, localePreferences []string) map[string]any {
	if len(claimNames) == 0 {
		return nil
	}

	locales := normalizeLocales(localePreferences)
	collected := make(map[string]any)

	for _, requested := range claimNames {
		if requested == "" {
			continue
		}

		name, tag, tagged := strings.Cut(requested, claimLocaleSeparator)
		if name == "" {
			continue
		}

		var value any
		if tagged {
			value = c.provider.GetUserClaimValue(subject, name, tag)
		} else {
			value = c.resolveWithLocales(subject, name, locales)
		}
		if value == nil {
			continue
		}

		// A name ending in a bare "#" is keyed by the full requested string.
		// Compatibility behavior, pinned by TestClaimCollector_EmptyLanguageTag.
		key := name
		if tagged && tag == "" {
			key = requested
		}
		collected[key] = value
	}

	if len(collected) == 0 {
		return nil
	}
	return collected
}

// resolveWithLocales tries each preferred locale in order and falls back to
// an untagged query when none produced a value.
func (c *ClaimCollector) resolveWithLocales(subject, name string, locales []string) any {
	for _, locale := range locales {
		if value := c.provider.GetUserClaimValue(subject, name, locale); value != nil {
			return value
		}
	}
	return c.provider.GetUserClaimValue(subject, name, "")
}

// normalizeLocales drops empty entries and case-insensitive duplicates,
// preserving the first occurrence's casing and the original order. Returns
// nil when nothing survives. The function is idempotent.
func normalizeLocales(locales []string) []string {
	if len(locales) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(locales))
	var normalized []string
	for _, locale := range locales {
		if locale == "" {
			continue
		}
		key := strings.ToLower(locale)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, locale)
	}
	return normalized
}

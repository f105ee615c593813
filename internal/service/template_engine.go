package service

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

var templateToken = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// RenderedTemplate is a template with its variables substituted.
type RenderedTemplate struct {
	Subject     string
	Description string
}

// RenderTemplate substitutes {name} tokens case-insensitively in subject and
// description. Built-ins username, date, time and datetime are derived from
// requesterName and now unless vars overrides them. Unknown tokens stay as written.
// When vars spells one name several ways, the all-lowercase key wins, then the
// lexically first spelling.
func RenderTemplate(tpl *domain.TicketTemplate, vars map[string]string, requesterName string, now time.Time) RenderedTemplate {
	values := map[string]string{
		"username": requesterName,
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04"),
		"datetime": now.Format("2006-01-02 15:04"),
	}
	overridden := make(map[string]bool, len(vars))
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		name := strings.ToLower(k)
		if overridden[name] && k != name {
			continue
		}
		values[name] = vars[k]
		overridden[name] = true
	}
	return RenderedTemplate{
		Subject:     substitute(tpl.Subject, values),
		Description: substitute(tpl.DescriptionText, values),
	}
}

func substitute(text string, values map[string]string) string {
	return templateToken.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.ToLower(token[1 : len(token)-1])
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}

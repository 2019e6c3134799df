package contract

import (
	"fmt"
	"strings"
)

// Forwarding protocol keys, in emission order. PERGUNTA_ORIGINAL and PERSONA
// may span multiple lines; a field runs until the next known key starts a
// line.
const (
	keyRoute    = "ROUTE="
	keyQuestion = "PERGUNTA_ORIGINAL="
	keyPersona  = "PERSONA="
	keyClarify  = "CLARIFY="
)

// ForwardMarker is the sole signal that a router output is a forwarding
// response rather than a direct reply.
const ForwardMarker = keyRoute

// Encode renders the envelope in the line-oriented wire format.
func (e ForwardEnvelope) Encode() string {
	var b strings.Builder
	b.WriteString(keyRoute)
	b.WriteString(string(e.Route))
	b.WriteString("\n")
	b.WriteString(keyQuestion)
	b.WriteString(e.OriginalQuestion)
	b.WriteString("\n")
	b.WriteString(keyPersona)
	b.WriteString(e.Persona)
	b.WriteString("\n")
	b.WriteString(keyClarify)
	b.WriteString(e.Clarify)
	return b.String()
}

// ParseRouterOutput turns raw router text into the tagged outcome. Text
// without the forward marker is a direct reply, as-is. Forward text is
// parsed once here; downstream stages never string-match on it again.
func ParseRouterOutput(raw string) (RouterOutcome, error) {
	if !strings.Contains(raw, ForwardMarker) {
		return RouterOutcome{Direct: raw}, nil
	}

	env, err := ParseEnvelope(raw)
	if err != nil {
		return RouterOutcome{}, err
	}
	return RouterOutcome{Forward: &env}, nil
}

// ParseEnvelope decodes the wire format. Lines before the ROUTE= line are
// discarded; a field accumulates until the next known key.
func ParseEnvelope(raw string) (ForwardEnvelope, error) {
	fields := map[string]*strings.Builder{}
	var current *strings.Builder
	started := false

	for _, line := range strings.Split(raw, "\n") {
		key, rest, ok := splitEnvelopeLine(line)
		if ok {
			if key == keyRoute {
				started = true
			}
			if !started {
				continue
			}
			b := &strings.Builder{}
			b.WriteString(rest)
			fields[key] = b
			current = b
			continue
		}
		if current != nil {
			current.WriteString("\n")
			current.WriteString(line)
		}
	}

	routeRaw, ok := fields[keyRoute]
	if !ok {
		return ForwardEnvelope{}, fmt.Errorf("%w: envelope has no %s line", ErrSchemaViolation, keyRoute)
	}
	route, err := ParseRoute(routeRaw.String())
	if err != nil {
		return ForwardEnvelope{}, err
	}

	env := ForwardEnvelope{
		Route:            route,
		OriginalQuestion: fieldValue(fields, keyQuestion),
		Persona:          fieldValue(fields, keyPersona),
		Clarify:          firstLine(fieldValue(fields, keyClarify)),
	}
	if strings.TrimSpace(env.OriginalQuestion) == "" {
		return ForwardEnvelope{}, fmt.Errorf("%w: envelope is missing the original question", ErrSchemaViolation)
	}
	return env, nil
}

func splitEnvelopeLine(line string) (key, rest string, ok bool) {
	for _, k := range []string{keyRoute, keyQuestion, keyPersona, keyClarify} {
		if strings.HasPrefix(line, k) {
			return k, strings.TrimPrefix(line, k), true
		}
	}
	return "", "", false
}

func fieldValue(fields map[string]*strings.Builder, key string) string {
	if b, ok := fields[key]; ok {
		return b.String()
	}
	return ""
}

// firstLine keeps a clarify field down to one question.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

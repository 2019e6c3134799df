// Package render turns a specialist answer into the user-facing reply. The
// layout is fixed, so no model runs here: rendering is deterministic and
// cannot reword what a specialist produced.
package render

import (
	"fmt"
	"strings"

	contractx "github.com/codcoz/chefia/agent/contract"
)

const (
	recommendationHeader = "- *Recomendação*:"
	followUpHeader       = "- *Acompanhamento* (opcional):"
)

// Render produces the reply text. Resposta is always the first line; the
// recommendation section appears only when non-empty; the follow-up section
// takes esclarecer over acompanhamento and is omitted when both are empty.
func Render(answer contractx.SpecialistAnswer) (string, error) {
	resposta := strings.TrimSpace(answer.Resposta)
	if resposta == "" {
		return "", fmt.Errorf("%w: resposta is required to render a reply", contractx.ErrSchemaViolation)
	}

	var b strings.Builder
	b.WriteString(resposta)

	if rec := strings.TrimSpace(answer.Recomendacao); rec != "" {
		b.WriteString("\n")
		b.WriteString(recommendationHeader)
		b.WriteString("\n")
		b.WriteString(rec)
	}

	followUp := strings.TrimSpace(answer.Esclarecer)
	if followUp == "" {
		followUp = strings.TrimSpace(answer.Acompanhamento)
	}
	if followUp != "" {
		b.WriteString("\n")
		b.WriteString(followUpHeader)
		b.WriteString("\n")
		b.WriteString(followUp)
	}

	return b.String(), nil
}

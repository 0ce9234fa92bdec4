package research

import (
	"fmt"
	"strings"

	"github.com/octobees/contact-enricher/internal/entity"
)

// SystemPrompt fixes tone and language of the research answer.
const SystemPrompt = "Du bist ein Recherche-Assistent. Antworte präzise und auf Deutsch."

// BuildQuery renders the research question for a lead. The five numbered
// questions are echoed in the answer and used by ParseAnswer to find sections.
func BuildQuery(lead entity.Lead) string {
	var b strings.Builder
	b.WriteString("Recherchiere folgende Person und ihr Unternehmen:\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(lead.Name))
	writeField(&b, "Unternehmen", lead.Company)
	writeField(&b, "Website", lead.Website)
	writeField(&b, "LinkedIn", lead.LinkedInURL)
	writeField(&b, "Position", lead.Headline)

	b.WriteString("\nBeantworte nummeriert:\n")
	b.WriteString("1. Was macht das Unternehmen? (2-3 Sätze)\n")
	b.WriteString("2. Welche typischen Geschäftsprozesse hat das Unternehmen, die sich automatisieren ließen?\n")
	fmt.Fprintf(&b, "3. Wie lautet die geschäftliche E-Mail-Adresse von %s?\n", strings.TrimSpace(lead.Name))
	b.WriteString("4. Wie lautet die geschäftliche Telefonnummer?\n")
	b.WriteString("5. Wie lautet die Website des Unternehmens?\n")
	b.WriteString("Wenn du etwas nicht findest, schreibe \"nicht gefunden\".")
	return b.String()
}

func writeField(b *strings.Builder, label string, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.TrimSpace(*v))
}

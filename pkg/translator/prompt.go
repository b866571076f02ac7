package translator

import (
	"fmt"

	"github.com/nguyenvanduocit/tradubot/pkg/variant"
)

const DefaultTargetLanguage = "Brazilian Portuguese"

func createSystemPrompt(target string) string {
	return fmt.Sprintf(`You translate short chat posts into %[1]s for a Telegram audience.
- Keep the meaning, tone and any emoji of the original
- Write natural, informal %[1]s
- Reply with the translations only: no numbering, no quotes, no explanations`, target)
}

func createVariantPrompt(text, target string, idealLength int, format variant.Format) string {
	layout := "Write each variant on its own line and nothing else."
	if format == variant.FormatJSON {
		layout = "Reply with a JSON array of exactly 3 strings and nothing else."
	}

	return fmt.Sprintf(`Translate the text below into %[1]s with exactly %[2]d different stylistic variants.
Each variant must be close to %[3]d characters long so posts look visually balanced.
%[4]s

Original text:
%[5]s`, target, variant.MaxVariants, idealLength, layout, text)
}

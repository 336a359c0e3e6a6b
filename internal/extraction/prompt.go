package extraction

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// SystemPrompt frames the model as a JSON-only extractor.
const SystemPrompt = "You are a helpful financial assistant that extracts financial data from text and returns valid JSON."

// BuildPrompt renders the fixed extraction instruction around a transcript.
func BuildPrompt(transcript string) string {
	categories := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		categories[i] = fmt.Sprintf("%q", c)
	}

	var sb strings.Builder
	sb.WriteString("Parse the following text and extract financial information.\n")
	sb.WriteString("Convert it into a JSON object with the following structure:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "incomes": [{"name": "string", "amount": number, "period": "monthly" | "yearly"}],` + "\n")
	sb.WriteString(`  "expenses": [{"name": "string", "amount": number, "period": "monthly" | "static" | "yearly", "category": "string"}],` + "\n")
	sb.WriteString(`  "message": "string - brief confirmation of what was processed"` + "\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Extract only clear, unambiguous financial amounts and descriptions\n")
	sb.WriteString("- Categorize as income or expense based on context\n")
	sb.WriteString("- Use the appropriate period: monthly, yearly, or static for fixed monthly obligations\n")
	sb.WriteString("- If there is no clear financial data, return empty arrays\n")
	sb.WriteString(fmt.Sprintf("- Categories can be: %s\n\n", strings.Join(categories, ", ")))
	sb.WriteString(fmt.Sprintf("Text to process: %q\n\n", transcript))
	sb.WriteString("Respond only with valid JSON, no additional text.")
	return sb.String()
}

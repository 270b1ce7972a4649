package llm

import (
	"fmt"
	"strings"
)

const classifySystemPrompt = "You are an EV-industry news analyst and category classification assistant."

// classifyPromptHeader instructs the model to sort the supplied articles
// into the fixed category schema. Each entry must carry a title; the rest
// of the fields are schema-specific and opaque to the pipeline.
const classifyPromptHeader = `Analyze the news articles below and sort every distinct story into the
predefined categories, merging duplicate coverage of the same story.

Categories and their entry fields (every entry must include "title"):
1. model_price_up: title, price, change, details, published, urls
2. model_price_down: title, price, change, details, published, urls
3. new_model: title, model_name, release_date, details, published, urls
4. autonomous_update: title, feature, update_details, published, urls
5. software_update: title, update_title, update_details, published, urls
6. infrastructure_update: title, infrastructure_details, published, urls
7. battery_update: title, battery_details, published, urls
8. policy_update: title, policy_details, published, urls
9. production_update: title, production_details, published, urls
10. stock_update: title, stock_details, published, urls
11. ceo_statement: title, statement_details, published, urls
12. global_trend: title, trend_details, published, urls

Respond with a single JSON object mapping category names to arrays of entry
objects. Omit categories with no entries. Do not invent stories that are not
present in the articles. Write all output in %s.

Articles:
`

// BuildClassifyPrompt renders the user message for one classification call.
func BuildClassifyPrompt(payload, locale string) string {
	return fmt.Sprintf(classifyPromptHeader, locale) + payload
}

const similaritySystemPrompt = "You are a message similarity analysis expert."

// BuildSimilarityPrompt renders the comparison request between new
// candidate messages and previously delivered ones. The threshold is
// interpolated so the prompt and the verdict comparison always agree.
func BuildSimilarityPrompt(candidates, history []string, threshold float64) string {
	var sb strings.Builder

	sb.WriteString("Here are the new messages:\n")

	for i, msg := range candidates {
		sb.WriteString(fmt.Sprintf("%d. %q\n", i+1, msg))
	}

	sb.WriteString("\nHere are the previously sent messages:\n")

	for i, msg := range history {
		sb.WriteString(fmt.Sprintf("%d. %q\n", i+1, msg))
	}

	sb.WriteString(fmt.Sprintf(`
For each new message, judge whether any previously sent message conveys the
same story, and compute the maximum similarity as a real number between 0
and 1. A message with similarity of %.2f or higher counts as already sent.
Respond with a JSON array, in the order of the new messages, where each
element has the form {"is_duplicate": boolean, "score": number}.
`, threshold))

	return sb.String()
}

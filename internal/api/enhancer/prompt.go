package enhancer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errMissingReasons = errors.New("response missing reasons object")

func buildEnhancementPrompt(places []EnhancePlace, preferences map[string]float64, tripContextText, locale string) string {
	var b strings.Builder

	b.WriteString("You are helping a group plan a trip. For each place below, write one short, inviting reason (10 words or fewer) why the group should visit it.\n")
	fmt.Fprintf(&b, "Trip context: %s.\n", tripContextText)
	fmt.Fprintf(&b, "Write the reasons in the language with locale code %q.\n", locale)

	if len(preferences) > 0 {
		// Sorted for a deterministic prompt.
		categories := make([]string, 0, len(preferences))
		for c := range preferences {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		b.WriteString("The group cares most about: ")
		for i, c := range categories {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%.1f)", c, preferences[c])
		}
		b.WriteString(".\n")
	}

	b.WriteString("\nPlaces:\n")
	for _, p := range places {
		fmt.Fprintf(&b, "- id: %s | name: %s | category: %s\n", p.ID, p.Name, p.Category)
	}

	b.WriteString(`
Return the response STRICTLY as a JSON object with:
{
  "reasons": {
    "<place id>": "<short reason, max 10 words>"
  }
}`)
	return b.String()
}

func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}
	response = strings.TrimSpace(response)

	// The model sometimes wraps the JSON in explanatory text; keep the
	// outermost object only.
	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}

package extract

import (
	"fmt"
	"strings"
)

// promptFields is the field dictionary the oracle is asked to fill. It
// mirrors the DetailRecord JSON keys so the salvaged object can be merged
// directly.
var promptFields = []string{
	"agency_division",
	"contract_method",
	"bid_type",
	"industry_limit",
	"region_limit",
	"estimated_price",
	"budget_price",
	"progress_info",
	"contact_name",
	"contact_phone",
}

// buildPrompt asks for a single JSON object with the dictionary keys. The
// page text section is omitted for vision prompts, where the screenshot
// carries the content.
func buildPrompt(number, pageText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract structured fields from a Korean government bid announcement detail page (announcement number %s).\n", number)
	b.WriteString("Reply with exactly one JSON object using these keys, string values only, omitting keys you cannot determine:\n")
	for _, f := range promptFields {
		b.WriteString("  - ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if pageText != "" {
		b.WriteString("\nPage content:\n")
		b.WriteString(pageText)
	}
	return b.String()
}

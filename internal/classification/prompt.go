package classification

import "fmt"

const systemPrompt = "You are a strict JSON-only classifier."

const classifyEmailPrompt = `
You are an enterprise Accounts Payable dispute classification system
used in a large-scale supplier payment and invoice processing environment.

Your task is to classify a supplier email into EXACTLY one of the
following categories based on operational intent.

### Categories

1. dispute
   - The supplier explicitly or implicitly raises a financial disagreement.
   - Examples include invoice amount mismatch, short payment,
     missing or delayed payment, or incorrect invoice processing.

2. ambiguous
   - The supplier is requesting clarification or status.
   - No explicit financial discrepancy is stated yet.

3. non_dispute
   - Informational or administrative messages with no payment issue.

### Classification Rules

- Focus on financial and operational intent, not tone.
- If a monetary discrepancy is mentioned -> dispute.
- If clarification is requested without asserting error -> ambiguous.
- Otherwise -> non_dispute.

### Output Requirements

Return ONLY valid JSON with fields label, confidence, reason.

### Supplier Email Content
%s
`

func buildPrompt(emailBody string) string {
	return fmt.Sprintf(classifyEmailPrompt, emailBody)
}

// classificationSchema constrains the structured output to the exact shape
// the pipeline stores.
var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"label": map[string]any{
			"type": "string",
			"enum": []string{"dispute", "ambiguous", "non_dispute"},
		},
		"confidence": map[string]any{
			"type": "number",
		},
		"reason": map[string]any{
			"type": "string",
		},
	},
	"required":             []string{"label", "confidence", "reason"},
	"additionalProperties": false,
}

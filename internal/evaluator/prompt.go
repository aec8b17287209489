package evaluator

import (
	"strings"

	"compliance/internal/domain"
)

const promptTemplate = `You are a compliance auditor. Check if the contract complies with this rule:

Rule: {rule_name}
Description: {rule_description}

Contract Section:
{context}

Determine if the contract satisfies this rule. Respond with:
1. Compliance Status: YES or NO
2. Evidence: Quote relevant text from the contract
3. Remediation: If non-compliant, suggest how to fix it

Format:
Status: [YES/NO]
Evidence: [relevant text]
Remediation: [suggestion or N/A]`

// BuildPrompt renders the auditor prompt for rule over contextText.
func BuildPrompt(rule domain.Rule, contextText string) string {
	r := strings.NewReplacer(
		"{rule_name}", rule.Name,
		"{rule_description}", rule.Description,
		"{context}", contextText,
	)
	return r.Replace(promptTemplate)
}

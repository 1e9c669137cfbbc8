package gateway

import (
	"fmt"
	"strings"

	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/evidence"
)

// personas are the fixed role descriptions layered at the top of every
// prompt.
var personas = map[domain.Role]string{
	domain.RoleCEO: "You are the CEO. You weigh strategic positioning, competitive dynamics, " +
		"and long-term value creation. You are decisive but open to counter-arguments.",
	domain.RoleCFO: "You are the CFO. You weigh capital allocation, cash flow, risk exposure, " +
		"and return on investment. You challenge assumptions with numbers.",
	domain.RoleCTO: "You are the CTO. You weigh technical feasibility, platform implications, " +
		"build-versus-buy trade-offs, and engineering capacity.",
	domain.RoleHR: "You are the HR lead. You weigh organizational impact, hiring, retention, " +
		"culture, and change management.",
	domain.RoleFacilitator: "You are the facilitator of an executive discussion. You synthesize " +
		"the participants' positions into a single actionable recommendation.",
}

// metadataFooter instructs the model to emit the structured block. Only
// appended when evidence or market data is present.
var metadataFooter = fmt.Sprintf(`
After your answer, append a block delimited by %s and %s containing a single
JSON object with the keys: "confidence_level" (high|medium|low),
"key_factors", "risks", "assumptions", and "data_sources" (string arrays).`,
	domain.MetadataBlockStart, domain.MetadataBlockEnd)

// BuildPrompt layers the full prompt for one role: persona, scenario,
// discussion context, evidence block, market block, advice block, and the
// structured metadata footer when evidence is present.
func BuildPrompt(role domain.Role, scenario, discussionContext string, bundle *evidence.Bundle) string {
	var sb strings.Builder

	persona, ok := personas[role]
	if !ok {
		persona = fmt.Sprintf("You are the %s.", strings.ToUpper(string(role)))
	}
	sb.WriteString(persona)
	sb.WriteString("\n\nSCENARIO:\n")
	sb.WriteString(scenario)

	if discussionContext != "" {
		sb.WriteString("\n\nDISCUSSION SO FAR:\n")
		sb.WriteString(discussionContext)
	}

	if block := bundle.PromptBlock(); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}
	if block := bundle.MarketBlock(); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}
	if block := bundle.AdviceBlock(role); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}

	if bundle.HasEvidence() {
		sb.WriteString("\n")
		sb.WriteString(metadataFooter)
	}

	return sb.String()
}

package engine

import (
	"context"
	"strings"

	"github.com/execboard/boardroom/internal/domain"
)

// cannedResponses are the fixed per-role answers served in demo mode.
var cannedResponses = map[domain.Role]string{
	domain.RoleCEO: "From a strategic standpoint, I recommend we pursue this opportunity in phases. " +
		"A staged commitment preserves optionality while signaling intent to the market.",
	domain.RoleCFO: "The numbers support a cautious approach. I propose we cap initial exposure at a " +
		"single quarter's discretionary budget and revisit once we see trailing indicators.",
	domain.RoleCTO: "Technically this is feasible with our current platform. I suggest we validate the " +
		"integration surface with a two-week spike before committing the roadmap.",
	domain.RoleHR: "From a people perspective, we need a hiring and retention plan before any expansion. " +
		"I recommend pairing this decision with a staffing review.",
	domain.RoleFacilitator: "**EXECUTIVE SUMMARY:** The group favors a phased commitment.\n\n" +
		"**RECOMMENDED ACTION:** Proceed in stages with quarterly checkpoints.\n\n" +
		"**CONFIDENCE LEVEL:** Medium",
}

// demoFallback is served when a prompt names no recognizable role.
const demoFallback = "Based on the available information, I recommend proceeding with a measured, " +
	"staged approach and revisiting the decision as new data arrives."

// DemoEngine returns canned responses without any external call. It backs
// demo/sandbox mode and the demo-caller fallback path.
type DemoEngine struct{}

// NewDemoEngine creates the canned engine.
func NewDemoEngine() *DemoEngine { return &DemoEngine{} }

// Name implements Engine.
func (d *DemoEngine) Name() string { return "demo" }

// Generate implements Engine. It never fails.
func (d *DemoEngine) Generate(ctx context.Context, prompt, model string, opts Options) (string, error) {
	return CannedResponse(roleFromPrompt(prompt)), nil
}

// CannedResponse returns the fixed demo answer for a role.
func CannedResponse(role domain.Role) string {
	if text, ok := cannedResponses[role]; ok {
		return text
	}
	return demoFallback
}

// roleFromPrompt recovers the persona from a layered prompt. The gateway
// opens every prompt with "You are the <ROLE>".
func roleFromPrompt(prompt string) domain.Role {
	lower := strings.ToLower(prompt)
	for _, role := range append([]domain.Role{domain.RoleFacilitator}, domain.KnownRoles...) {
		if strings.Contains(lower, "you are the "+string(role)) {
			return role
		}
	}
	return ""
}

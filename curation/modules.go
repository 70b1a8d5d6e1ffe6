// Package curation turns raw transcripts into structured study notes with
// an LLM: summary bullets, do/don't takeaways, topics, and a knowledge-base
// module assignment.
package curation

// ModuleInfo describes one knowledge-base module.
type ModuleInfo struct {
	ID          string
	Name        string
	Description string
	Keywords    []string
}

// Modules is the fixed knowledge-base taxonomy, in presentation order.
var Modules = []ModuleInfo{
	{
		ID:          "foundations",
		Name:        "Foundations of AI Agents",
		Description: "Core concepts, architectures, and fundamental principles of AI agents",
		Keywords:    []string{"fundamentals", "architecture", "basics", "concepts", "decision-making", "reasoning"},
	},
	{
		ID:          "workflows",
		Name:        "Agentic Workflows & Orchestration",
		Description: "Patterns for multi-agent systems, orchestration, and workflow design",
		Keywords:    []string{"workflow", "orchestration", "multi-agent", "patterns", "automation", "pipeline"},
	},
	{
		ID:          "tooling",
		Name:        "Tooling & Frameworks",
		Description: "AI engineering tools, frameworks, and development practices",
		Keywords:    []string{"tools", "frameworks", "development", "engineering", "implementation", "SDLC"},
	},
	{
		ID:          "case_studies",
		Name:        "Case Studies & Lessons",
		Description: "Real-world applications, lessons learned, and anti-patterns",
		Keywords:    []string{"case study", "lessons", "real-world", "enterprise", "business", "transformation"},
	},
}

// ValidModule reports whether id names a known module.
func ValidModule(id string) bool {
	for _, m := range Modules {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ModuleByID returns the module definition for id, or nil.
func ModuleByID(id string) *ModuleInfo {
	for i := range Modules {
		if Modules[i].ID == id {
			return &Modules[i]
		}
	}
	return nil
}

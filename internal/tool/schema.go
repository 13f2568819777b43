package tool

// Descriptor is the wire shape sent to an LLM backend describing one
// callable tool (spec §4.2's tool/schema contract).
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// GetToolSchemas returns descriptors for every tool in DefaultRegistry.
func GetToolSchemas() []Descriptor {
	names := DefaultRegistry.List()
	out := make([]Descriptor, 0, len(names)+1)
	for _, name := range names {
		t, ok := DefaultRegistry.Get(name)
		if !ok {
			continue
		}
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description(), Parameters: t.ParameterSchema()})
	}
	return out
}

// GetToolSchemasFiltered returns all schemas except those named in disabled.
func GetToolSchemasFiltered(disabled map[string]bool) []Descriptor {
	all := GetToolSchemas()
	if len(disabled) == 0 {
		return all
	}
	filtered := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if !disabled[d.Name] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// planModeAllowed are the read-only tools available while plan mode is
// active (spec §4.2): exploration only, no mutation.
var planModeAllowed = map[string]bool{
	"Read": true, "Glob": true, "Grep": true, "List": true,
}

// GetPlanModeToolSchemas returns only the read-only tools available in
// plan mode.
func GetPlanModeToolSchemas() []Descriptor {
	all := GetToolSchemas()
	out := make([]Descriptor, 0, len(planModeAllowed))
	for _, d := range all {
		if planModeAllowed[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// GetPlanModeToolSchemasFiltered applies a disabled-tool filter on top of
// the plan-mode tool set.
func GetPlanModeToolSchemasFiltered(disabled map[string]bool) []Descriptor {
	all := GetPlanModeToolSchemas()
	if len(disabled) == 0 {
		return all
	}
	filtered := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if !disabled[d.Name] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

package analysis

import (
	"regexp"
	"strings"
)

// FieldsVersion identifies the consolidated key vocabulary below. Bump it
// when keys are added or renamed so stored sessions can be told apart.
const FieldsVersion = "v1"

// Consolidated memory keys. The store stays schema-less (string values); this
// list is the documented vocabulary the merge logic and the BOQ stage agree on.
const (
	KeyTotalFloorPlans    = "total_floor_plans_analyzed"
	KeyBuildingType       = "building_type_consolidated"
	KeyCombinedTotalArea  = "combined_total_area"
	KeyFloorsRelationship = "floors_relationship"

	KeyTotalRooms  = "total_rooms_all_floors"
	KeyBedrooms    = "bedrooms_all_floors_detailed"
	KeyBathrooms   = "bathrooms_all_floors_detailed"
	KeyKitchens    = "kitchens_all_floors_detailed"
	KeyCommonAreas = "common_areas_detailed"

	KeyTotalDoors       = "total_doors_detailed"
	KeyTotalWindows     = "total_windows_detailed"
	KeyStaircases       = "staircases_all_floors"
	KeyStructuralSystem = "structural_system"

	KeyPlumbingSystem   = "plumbing_system_detailed"
	KeyElectricalSystem = "electrical_system_detailed"
	KeyHVACSystem       = "hvac_system_detailed"
	KeyMechanicalRooms  = "mechanical_rooms"

	KeyConcreteNeeded   = "total_concrete_needed"
	KeyFramingNeeded    = "total_framing_needed"
	KeyDrywallNeeded    = "total_drywall_needed"
	KeyFlooringNeeded   = "total_flooring_needed"
	KeyRoofingNeeded    = "total_roofing_needed"
	KeyExteriorCladding = "total_exterior_cladding"

	KeyMultiFileComplete      = "multi_file_analysis_complete"
	KeyProjectComplexity      = "project_complexity_detailed"
	KeyConstructionChallenges = "construction_challenges"
	KeyDesignConsistency      = "design_consistency"

	KeyBOQGenerated  = "boq_generated_from_detailed_analysis"
	KeyBOQAccuracy   = "boq_accuracy_level"
	KeyBOQGeneration = "boq_generation_date"
)

// ProjectFacts is the typed projection of the known fields. The wire format
// stays stringly-typed; this struct exists so merge logic is type-checked.
type ProjectFacts struct {
	TotalFloorPlans    string
	BuildingType       string
	CombinedTotalArea  string
	FloorsRelationship string

	TotalRooms  string
	Bedrooms    string
	Bathrooms   string
	Kitchens    string
	CommonAreas string

	TotalDoors       string
	TotalWindows     string
	Staircases       string
	StructuralSystem string

	PlumbingSystem   string
	ElectricalSystem string
	HVACSystem       string
	MechanicalRooms  string

	ConcreteNeeded   string
	FramingNeeded    string
	DrywallNeeded    string
	FlooringNeeded   string
	RoofingNeeded    string
	ExteriorCladding string

	ProjectComplexity      string
	ConstructionChallenges string
	DesignConsistency      string

	// Extra keeps labeled facts outside the documented vocabulary so the
	// store stays schema-less. Keys are the normalized labels.
	Extra map[string]string
}

// Entries flattens the non-empty facts to memory entries keyed by the
// documented vocabulary.
func (f ProjectFacts) Entries() map[string]string {
	entries := map[string]string{}
	put := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			entries[key] = strings.TrimSpace(value)
		}
	}

	put(KeyTotalFloorPlans, f.TotalFloorPlans)
	put(KeyBuildingType, f.BuildingType)
	put(KeyCombinedTotalArea, f.CombinedTotalArea)
	put(KeyFloorsRelationship, f.FloorsRelationship)
	put(KeyTotalRooms, f.TotalRooms)
	put(KeyBedrooms, f.Bedrooms)
	put(KeyBathrooms, f.Bathrooms)
	put(KeyKitchens, f.Kitchens)
	put(KeyCommonAreas, f.CommonAreas)
	put(KeyTotalDoors, f.TotalDoors)
	put(KeyTotalWindows, f.TotalWindows)
	put(KeyStaircases, f.Staircases)
	put(KeyStructuralSystem, f.StructuralSystem)
	put(KeyPlumbingSystem, f.PlumbingSystem)
	put(KeyElectricalSystem, f.ElectricalSystem)
	put(KeyHVACSystem, f.HVACSystem)
	put(KeyMechanicalRooms, f.MechanicalRooms)
	put(KeyConcreteNeeded, f.ConcreteNeeded)
	put(KeyFramingNeeded, f.FramingNeeded)
	put(KeyDrywallNeeded, f.DrywallNeeded)
	put(KeyFlooringNeeded, f.FlooringNeeded)
	put(KeyRoofingNeeded, f.RoofingNeeded)
	put(KeyExteriorCladding, f.ExteriorCladding)
	put(KeyProjectComplexity, f.ProjectComplexity)
	put(KeyConstructionChallenges, f.ConstructionChallenges)
	put(KeyDesignConsistency, f.DesignConsistency)

	for key, value := range f.Extra {
		if _, taken := entries[key]; !taken {
			put(key, value)
		}
	}

	return entries
}

// factLine matches markdown bullet facts in the consolidated summary, e.g.
// "- **Total Rooms**: 18 rooms, 5 toilets, 3 kitchens".
var factLine = regexp.MustCompile(`^\s*[-*]?\s*\*\*([^*]+)\*\*\s*:\s*(.+?)\s*$`)

var labelSynonyms = map[string]*struct{ assign func(*ProjectFacts, string) }{}

func register(assign func(*ProjectFacts, string), labels ...string) {
	entry := &struct{ assign func(*ProjectFacts, string) }{assign}
	for _, l := range labels {
		labelSynonyms[normalizeLabel(l)] = entry
	}
}

func init() {
	register(func(f *ProjectFacts, v string) { f.TotalFloorPlans = v },
		"Total Floor Plans Analyzed", "Floor Plans Analyzed", "Total Floor Plans")
	register(func(f *ProjectFacts, v string) { f.BuildingType = v },
		"Building Type", "Project Type", "Floor Plan Type")
	register(func(f *ProjectFacts, v string) { f.CombinedTotalArea = v },
		"Combined Area", "Combined Total Area", "Total Estimated Area", "Total Area")
	register(func(f *ProjectFacts, v string) { f.FloorsRelationship = v },
		"Plan Relationships", "Floors Relationship")
	register(func(f *ProjectFacts, v string) { f.TotalRooms = v },
		"Total Rooms", "Total Rooms All Floors", "Rooms")
	register(func(f *ProjectFacts, v string) { f.Bedrooms = v }, "Bedrooms")
	register(func(f *ProjectFacts, v string) { f.Bathrooms = v }, "Bathrooms", "Toilets")
	register(func(f *ProjectFacts, v string) { f.Kitchens = v }, "Kitchens")
	register(func(f *ProjectFacts, v string) { f.CommonAreas = v },
		"Common Areas", "Living Areas")
	register(func(f *ProjectFacts, v string) { f.TotalDoors = v },
		"Total Doors", "Doors")
	register(func(f *ProjectFacts, v string) { f.TotalWindows = v },
		"Total Windows", "Windows")
	register(func(f *ProjectFacts, v string) { f.Staircases = v },
		"Staircases", "Stairs")
	register(func(f *ProjectFacts, v string) { f.StructuralSystem = v },
		"Structural System", "Structure Type")
	register(func(f *ProjectFacts, v string) { f.PlumbingSystem = v },
		"Plumbing", "Plumbing Fixtures", "Plumbing System")
	register(func(f *ProjectFacts, v string) { f.ElectricalSystem = v },
		"Electrical", "Electrical Fixtures", "Electrical System")
	register(func(f *ProjectFacts, v string) { f.HVACSystem = v },
		"HVAC", "HVAC System", "Mechanical Features")
	register(func(f *ProjectFacts, v string) { f.MechanicalRooms = v },
		"Mechanical Rooms", "Utility Spaces")
	register(func(f *ProjectFacts, v string) { f.ConcreteNeeded = v },
		"Concrete", "Total Concrete", "Concrete Needed", "Total Concrete Needed")
	register(func(f *ProjectFacts, v string) { f.FramingNeeded = v },
		"Framing", "Total Framing", "Total Framing Needed")
	register(func(f *ProjectFacts, v string) { f.DrywallNeeded = v },
		"Drywall", "Total Drywall", "Total Drywall Needed")
	register(func(f *ProjectFacts, v string) { f.FlooringNeeded = v },
		"Flooring", "Total Flooring", "Total Flooring Needed")
	register(func(f *ProjectFacts, v string) { f.RoofingNeeded = v },
		"Roofing", "Total Roofing", "Total Roofing Needed")
	register(func(f *ProjectFacts, v string) { f.ExteriorCladding = v },
		"Exterior Cladding", "Total Exterior Cladding", "Siding")
	register(func(f *ProjectFacts, v string) { f.ProjectComplexity = v },
		"Project Complexity", "Complexity")
	register(func(f *ProjectFacts, v string) { f.ConstructionChallenges = v },
		"Construction Challenges", "Construction Considerations")
	register(func(f *ProjectFacts, v string) { f.DesignConsistency = v },
		"Design Consistency")
}

// ExtractFacts scans the consolidated narrative for labeled bullet facts and
// fills the typed projection. First occurrence of a label wins so facts from
// the consolidated summary section don't get clobbered by later narration.
// Labels outside the vocabulary still land in Extra, keyed by their
// normalized label, so unanticipated facts survive into the store.
func ExtractFacts(consolidated string) ProjectFacts {
	var facts ProjectFacts
	seen := map[*struct{ assign func(*ProjectFacts, string) }]bool{}

	for _, line := range strings.Split(consolidated, "\n") {
		m := factLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		norm := normalizeLabel(m[1])
		entry, ok := labelSynonyms[norm]
		if !ok {
			key := strings.ReplaceAll(norm, " ", "_")
			if key == "" {
				continue
			}
			if facts.Extra == nil {
				facts.Extra = map[string]string{}
			}
			if _, dup := facts.Extra[key]; !dup {
				facts.Extra[key] = strings.TrimSpace(m[2])
			}
			continue
		}
		if seen[entry] {
			continue
		}
		seen[entry] = true
		entry.assign(&facts, strings.TrimSpace(m[2]))
	}

	return facts
}

var nonAlpha = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = nonAlpha.ReplaceAllString(label, "")
	return strings.Join(strings.Fields(label), " ")
}

package router

// InputType classifies the kind of page/source a job targets (§4.3).
type InputType string

const (
	InputDirectory      InputType = "directory"
	InputSPACatalog     InputType = "spa_catalog"
	InputDocument       InputType = "document"
	InputWebsite        InputType = "website"
	InputTable          InputType = "table"
	InputMemberTable    InputType = "member_table"
	InputMesseFrankfurt InputType = "messe_frankfurt"
	InputUnknown        InputType = "unknown"
)

// MiningMode controls whether the AI enrichment step is appended (§4.3).
type MiningMode string

const (
	ModeFull MiningMode = "full"
	ModeFree MiningMode = "free"
	ModeAI   MiningMode = "ai"
)

// primaryExtractorByInputType is the type-specific primary extractor
// appended first for each input type (§4.3).
var primaryExtractorByInputType = map[InputType]string{
	InputDirectory:      "directoryMiner",
	InputSPACatalog:      "spaNetworkMiner",
	InputDocument:        "documentMiner",
	InputWebsite:         "httpBasicMiner",
	InputTable:           "playwrightTableMiner",
	InputMemberTable:     "playwrightTableMiner",
	InputMesseFrankfurt:  "playwrightTableMiner",
	InputUnknown:         "httpBasicMiner",
}

// selfPaginatingInputTypes yield a single-step plan: the orchestrator must
// not wrap them in its own pagination loop (§4.3).
var selfPaginatingInputTypes = map[InputType]bool{
	InputDirectory:  true,
	InputSPACatalog: true,
}

// Step is one entry in an ExecutionPlan.
type Step struct {
	Miner      string
	Normalizer string
	Reason     string
}

// Plan is an ordered sequence of extraction steps.
type Plan struct {
	Steps         []Step
	SelfPaginated bool
}

// BuildPlan produces an ordered plan from (input_type, mining_mode) per §4.3.
func BuildPlan(inputType InputType, mode MiningMode) Plan {
	primary, ok := primaryExtractorByInputType[inputType]
	if !ok {
		primary = primaryExtractorByInputType[InputUnknown]
	}

	plan := Plan{
		Steps:         []Step{{Miner: primary, Normalizer: "standard", Reason: "primary extractor for " + string(inputType)}},
		SelfPaginated: selfPaginatingInputTypes[inputType],
	}

	if mode == ModeAI {
		plan.Steps = append(plan.Steps, Step{Miner: "aiMiner", Normalizer: "standard", Reason: "ai enrichment step"})
	}

	return plan
}

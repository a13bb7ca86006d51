package scenario

// Case is one test case within a scenario.
type Case struct {
	Tradition  string `yaml:"tradition"`
	Background string `yaml:"background,omitempty"`
	Intention  string `yaml:"intention,omitempty"`
	Consent    bool   `yaml:"consent,omitempty"`
	Elder      bool   `yaml:"elder,omitempty"`
	Expect     string `yaml:"expect"`
	// Condition, when set, must appear among the decision's conditions.
	Condition string `yaml:"condition,omitempty"`
}

// Scenario is a named collection of permission test cases.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index     int    `json:"index"`
	Passed    bool   `json:"passed"`
	Tradition string `json:"tradition"`
	Level     string `json:"level,omitempty"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Reason    string `json:"reason,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}

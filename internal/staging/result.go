package staging

// Outcome is the terminal state of a Stage call that did not fail.
type Outcome string

const (
	OutcomeStaged    Outcome = "staged"
	OutcomeCancelled Outcome = "cancelled"
)

// MatchStatus records how a submission lookup ended.
type MatchStatus string

const (
	MatchFound     MatchStatus = "found"
	MatchNotFound  MatchStatus = "not_found"
	MatchAmbiguous MatchStatus = "ambiguous"
)

// ReportResult describes the report copy step.
type ReportResult struct {
	Status MatchStatus `json:"status"`
	// Source is the matched file under the reports folder.
	Source string `json:"source,omitempty"`
	// Path is the copy inside the workspace.
	Path       string   `json:"path,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// ExerciseResult describes one exercise slot after staging.
type ExerciseResult struct {
	Name   string      `json:"name"`
	Status MatchStatus `json:"status"`
	// Dir is the exercise directory in the workspace, including the empty
	// suffix when nothing was injected.
	Dir        string   `json:"dir"`
	Source     string   `json:"source,omitempty"`
	Solution   string   `json:"solution,omitempty"`
	QuickCopy  string   `json:"quick_copy,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Populated reports whether student code was injected.
func (e ExerciseResult) Populated() bool { return e.Status == MatchFound }

// Result is the contract surface handed to UI collaborators after staging.
type Result struct {
	Outcome    Outcome          `json:"outcome"`
	RunID      string           `json:"run_id"`
	Identifier string           `json:"identifier"`
	Workspace  string           `json:"workspace"`
	Frameworks []string         `json:"frameworks,omitempty"`
	Report     ReportResult     `json:"report"`
	Exercises  []ExerciseResult `json:"exercises,omitempty"`
}

// Populated returns the exercises that received student code.
func (r *Result) Populated() []ExerciseResult {
	return r.filter(func(e ExerciseResult) bool { return e.Populated() })
}

// Missing returns the exercises flagged with the empty suffix.
func (r *Result) Missing() []ExerciseResult {
	return r.filter(func(e ExerciseResult) bool { return !e.Populated() })
}

// ReportFound reports whether a report was copied.
func (r *Result) ReportFound() bool { return r.Report.Status == MatchFound }

func (r *Result) filter(keep func(ExerciseResult) bool) []ExerciseResult {
	var out []ExerciseResult
	for _, e := range r.Exercises {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

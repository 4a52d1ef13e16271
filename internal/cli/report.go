package cli

import (
	"encoding/json"
	"fmt"

	"github.com/shinji-kodama/chipdo/internal/model"
	"github.com/shinji-kodama/chipdo/internal/timefmt"
)

// reportJSON is the --json output of a successful run.
type reportJSON struct {
	Success bool       `json:"success"`
	Root    string     `json:"root"`
	Config  string     `json:"config,omitempty"`
	Steps   []stepJSON `json:"steps"`
}

// stepJSON is one completed action in the --json report.
type stepJSON struct {
	Action  string  `json:"action"`
	Took    string  `json:"took"`
	Seconds float64 `json:"seconds"`
}

// report prints the final confirmation of a successful run.
func (a *app) report(paths model.ProjectPaths, cfgPath string, results []model.StepResult) {
	if !a.flags.jsonOutput {
		fmt.Fprintln(a.stdout, "Finished!")
		return
	}

	out := reportJSON{
		Success: true,
		Root:    paths.Root,
		Config:  cfgPath,
		// Empty slice rather than nil so the JSON shows [] instead of null.
		Steps: make([]stepJSON, 0, len(results)),
	}
	for _, r := range results {
		out.Steps = append(out.Steps, stepJSON{
			Action:  r.Action.String(),
			Took:    timefmt.Format(r.Took),
			Seconds: r.Took.Seconds(),
		})
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(a.stdout, string(data))
}

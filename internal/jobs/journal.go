package jobs

import (
	"encoding/json"
	"os"

	"p01-compute-server/internal/state"
)

// JournalPath is the fixed filename spec §4.5 names for the on-shutdown
// snapshot, resolved relative to the process's working directory.
const JournalPath = "jobs_journal.json"

// SaveJournal writes every tracked job as a pretty-printed JSON array.
// Called once, on receipt of the shutdown signal, right before exit.
func SaveJournal(st *state.State, path string) error {
	all := st.ListJobs()
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadJournal restores the jobs table from a prior SaveJournal snapshot,
// if the file exists and parses. A missing file is not an error — the
// server simply starts with an empty jobs table.
func LoadJournal(st *state.State, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var loaded []*state.Job
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	st.LoadJobs(loaded)
	return nil
}

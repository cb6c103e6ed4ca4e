package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileLedger persists state as a single JSON document. The default driver;
// good enough for a single operator on one machine.
type FileLedger struct {
	path string
}

// NewFile creates a file-backed ledger at path.
func NewFile(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (f *FileLedger) Load(_ context.Context) (*State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, eris.Wrapf(err, "ledger: read %s", f.path)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, eris.Wrapf(err, "ledger: parse %s", f.path)
	}
	if state.DomainScores == nil {
		state.DomainScores = make(map[string]int)
	}
	return state, nil
}

func (f *FileLedger) Save(_ context.Context, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ledger: marshal state")
	}

	// Write-then-rename so a crash mid-save never truncates the ledger.
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return eris.Wrapf(err, "ledger: mkdir for %s", f.path)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "ledger: write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "ledger: rename %s", f.path)
	}
	return nil
}

func (f *FileLedger) Close() error { return nil }

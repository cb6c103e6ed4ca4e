package ledger

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
)

// LoopLog is the append-only journal of unattended loop cycles, one JSON
// object per line so appends never rewrite history.
type LoopLog struct {
	path string
}

// NewLoopLog creates a loop journal at path.
func NewLoopLog(path string) *LoopLog {
	return &LoopLog{path: path}
}

// Append writes one cycle entry.
func (l *LoopLog) Append(entry model.LoopEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "looplog: marshal entry")
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "looplog: open %s", l.path)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return eris.Wrapf(err, "looplog: append %s", l.path)
	}
	return nil
}

// Entries reads the whole journal. A missing file yields an empty slice.
func (l *LoopLog) Entries() ([]model.LoopEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "looplog: open %s", l.path)
	}
	defer f.Close()

	var entries []model.LoopEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry model.LoopEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, eris.Wrapf(err, "looplog: parse %s", l.path)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "looplog: scan %s", l.path)
	}
	return entries, nil
}

package alpaca

import (
	"sort"
	"sync"
	"sync/atomic"
)

// TransactionCounter generates ServerTransactionIDs. One counter is shared by
// every device served by a process.
type TransactionCounter struct {
	n atomic.Uint32
}

func NewTransactionCounter() *TransactionCounter {
	return &TransactionCounter{}
}

// Next returns the next id. Ids start at 1.
func (c *TransactionCounter) Next() uint32 {
	return c.n.Add(1)
}

// Current returns the last id handed out.
func (c *TransactionCounter) Current() uint32 {
	return c.n.Load()
}

// CmdStat counts the invocations of a single command.
type CmdStat struct {
	ID     int
	Name   string
	Count  uint64
	Get    uint64
	Put    uint64
	Errors uint64
}

// CommandStats records per-command and per-driver statistics.
type CommandStats struct {
	mu          sync.Mutex
	byID        map[int]*CmdStat
	total       uint64
	totalErrors uint64
}

func NewCommandStats() *CommandStats {
	return &CommandStats{byID: make(map[int]*CmdStat)}
}

// Record counts one invocation of command id made with verb.
func (s *CommandStats) Record(id int, name string, verb Verb, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.byID[id]
	if !ok {
		st = &CmdStat{ID: id, Name: name}
		s.byID[id] = st
	}

	st.Count++
	switch verb {
	case VerbGet:
		st.Get++
	case VerbPut:
		st.Put++
	}

	s.total++
	if failed {
		st.Errors++
		s.totalErrors++
	}
}

// Snapshot returns a copy of the per-command counters ordered by id.
func (s *CommandStats) Snapshot() []CmdStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CmdStat, 0, len(s.byID))
	for _, st := range s.byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Totals returns the number of commands processed and how many failed.
func (s *CommandStats) Totals() (processed, errors uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.totalErrors
}

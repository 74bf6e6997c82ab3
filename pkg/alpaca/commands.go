package alpaca

import (
	"fmt"
	"strings"
)

// Verb is the HTTP method a command accepts.
type Verb int

const (
	VerbGet Verb = iota + 1
	VerbPut
	VerbBoth
)

func (v Verb) String() string {
	switch v {
	case VerbGet:
		return "GET"
	case VerbPut:
		return "PUT"
	case VerbBoth:
		return "BOTH"
	}
	return "UNKNOWN"
}

// Allows reports whether a request made with method may invoke a command
// declared with v.
func (v Verb) Allows(method Verb) bool {
	return v == VerbBoth || v == method
}

// CmdNotFound is returned by Lookup for unknown names. It is never a valid id.
const CmdNotFound = -1

// CommandEntry binds a command name to its id and accepted verb.
type CommandEntry struct {
	Name string
	ID   int
	Verb Verb
}

// separator entries (like "--extras") split standard commands from extensions.
// They are kept in the table for ordering but can't be invoked or listed.
func (e CommandEntry) separator() bool {
	return strings.HasPrefix(e.Name, "-")
}

// CommandTable is an immutable, ordered set of commands for one device type.
type CommandTable struct {
	entries []CommandEntry
}

// NewCommandTable builds a table from entries, stopping at the first entry
// with an empty name. It panics on duplicate names or ids since tables are
// only built at start up.
func NewCommandTable(entries ...CommandEntry) *CommandTable {
	t := CommandTable{entries: make([]CommandEntry, 0, len(entries))}

	names := make(map[string]bool, len(entries))
	ids := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			break
		}
		name := strings.ToLower(e.Name)
		if names[name] {
			panic(fmt.Sprintf("alpaca: duplicate command name %q", e.Name))
		}
		if ids[e.ID] || e.ID == CmdNotFound {
			panic(fmt.Sprintf("alpaca: duplicate or invalid command id %d (%s)", e.ID, e.Name))
		}
		names[name] = true
		ids[e.ID] = true
		t.entries = append(t.entries, e)
	}

	return &t
}

// Lookup finds a command by case-insensitive name.
func (t *CommandTable) Lookup(name string) (int, Verb) {
	for _, e := range t.entries {
		if !e.separator() && strings.EqualFold(e.Name, name) {
			return e.ID, e.Verb
		}
	}
	return CmdNotFound, 0
}

// NameForEnum is the inverse of Lookup. It returns an empty name when the id
// is not in the table.
func (t *CommandTable) NameForEnum(id int) (string, Verb) {
	for _, e := range t.entries {
		if e.ID == id {
			return e.Name, e.Verb
		}
	}
	return "", 0
}

// Names returns every invocable command name, lower-cased, in table order.
func (t *CommandTable) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.separator() {
			continue
		}
		names = append(names, strings.ToLower(e.Name))
	}
	return names
}

// Entries returns a copy of the table entries, separators included.
func (t *CommandTable) Entries() []CommandEntry {
	out := make([]CommandEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len is the number of entries in the table.
func (t *CommandTable) Len() int {
	return len(t.entries)
}

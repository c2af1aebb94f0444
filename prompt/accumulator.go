package prompt


// Entry is one successfully generated section carried forward as context
// for later sections.
type Entry struct {
	SectionID string
	Title     string
	Content   string
}

// Accumulator is an ordered, append-only list of generated section content.
// Failed sections are never appended, so later prompts only ever see content
// that actually made it into the draft.
type Accumulator struct {
	entries []Entry
	index   map[string]int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		index: make(map[string]int),
	}
}

// Append adds an entry. Appending the same section id twice replaces the
// existing entry in place; order is preserved.
func (a *Accumulator) Append(e Entry) {
	if i, ok := a.index[e.SectionID]; ok {
		a.entries[i] = e
		return
	}
	a.index[e.SectionID] = len(a.entries)
	a.entries = append(a.entries, e)
}

// Len returns the number of entries.
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// Has reports whether a section id has been appended.
func (a *Accumulator) Has(sectionID string) bool {
	_, ok := a.index[sectionID]
	return ok
}

// Entries returns a copy of the entries in append order.
func (a *Accumulator) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// RenderForPrompt produces a bounded textual digest of the accumulated
// sections. Each entry's content is capped at maxPerEntry runes with a
// truncation marker when cut. Returns "" when the accumulator is empty.
func (a *Accumulator) RenderForPrompt(maxPerEntry int) string {
	if len(a.entries) == 0 {
		return ""
	}
	return renderEntries(a.entries, maxPerEntry)
}

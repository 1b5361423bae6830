package ui

// highlightTable maps highlight ids to attributes. Entry 0 holds the default
// colors; ids that were never defined resolve to it.
type highlightTable []Attrs

func newHighlightTable() highlightTable {
	return highlightTable{defaultAttrs()}
}

func (t highlightTable) get(id uint64) Attrs {
	if id < uint64(len(t)) {
		return t[id]
	}
	return t[0]
}

// define resets entry id to a copy of the default entry and returns it.
// Gaps before id are filled with copies of the default entry too.
func (t *highlightTable) define(id int) *Attrs {
	def := (*t)[0]
	for len(*t) <= id {
		*t = append(*t, def)
	}
	(*t)[id] = def
	return &(*t)[id]
}

package analysis

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// edit replaces the bytes [start, end) of the source.
type edit struct {
	start, end uint32
	text       string
}

func (x *extraction) addEdit(n *sitter.Node, text string) {
	x.edits = append(x.edits, edit{start: n.StartByte(), end: n.EndByte(), text: text})
}

// applyEdits returns content with the edits applied. An edit overlapping one
// further down the file is dropped.
func applyEdits(content []byte, edits []edit) string {
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start > sorted[j].start })

	out := make([]byte, len(content))
	copy(out, content)
	limit := uint32(len(content))
	for _, e := range sorted {
		if e.end > limit || e.start > e.end {
			continue
		}
		tail := append([]byte(e.text), out[e.end:]...)
		out = append(out[:e.start], tail...)
		limit = e.start
	}
	return string(out)
}

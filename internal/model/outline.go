package model

// Outline is a presentation tree of a letter: letter -> zones -> demands -> sentences.
// It is a closed union of *OutlineNode and OutlineLeaf.
type Outline interface {
	isOutline()
}

// OutlineKind tags the level of an OutlineNode
type OutlineKind string

const (
	OutlineLetter   OutlineKind = "letter"
	OutlineZone     OutlineKind = "zone"
	OutlineDemand   OutlineKind = "demand"
	OutlineSentence OutlineKind = "sentence"
)

// OutlineNode is an inner node carrying a span and children
type OutlineNode struct {
	Kind     OutlineKind
	Title    string
	Start    int
	End      int
	LabelIDs []int
	Children []Outline
}

// OutlineLeaf is raw text not covered by a deeper node
type OutlineLeaf struct {
	Text string
}

func (*OutlineNode) isOutline() {}
func (OutlineLeaf) isOutline()  {}

// WalkOutline visits the tree depth-first; depth is 0 at the root.
// Returning false from fn skips the children of a node.
func WalkOutline(o Outline, fn func(o Outline, depth int) bool) {
	walkOutline(o, 0, fn)
}

func walkOutline(o Outline, depth int, fn func(Outline, int) bool) {
	if !fn(o, depth) {
		return
	}
	if n, ok := o.(*OutlineNode); ok {
		for _, child := range n.Children {
			walkOutline(child, depth+1, fn)
		}
	}
}

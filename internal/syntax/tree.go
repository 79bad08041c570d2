package syntax

// Tree is an immutable, fully materialized syntax tree. Nodes are stored in a
// pre-order flattened arena so the whole tree can be consumed as an ordered
// node stream without recursing into its shape.
type Tree struct {
	source string
	nodes  []nodeData
}

type nodeData struct {
	tag     string
	start   int // byte offset into source
	end     int
	subtree int // arena index one past the last descendant
}

// Node is a lightweight handle into a Tree's node arena.
type Node struct {
	tree *Tree
	idx  int
}

// Tag returns the grammatical category name of the node.
func (n Node) Tag() string {
	return n.tree.nodes[n.idx].tag
}

// Source returns the full (preprocessed) source text the tree was built from.
func (t *Tree) Source() string {
	return t.source
}

// Nodes returns every node of the tree in document (pre-order) order,
// nested nodes included.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	for i := range t.nodes {
		out[i] = Node{tree: t, idx: i}
	}
	return out
}

// Text returns the literal source substring spanned by the node.
func (t *Tree) Text(n Node) string {
	d := t.nodes[n.idx]
	return t.source[d.start:d.end]
}

// Unwrap walks a chain of expected tag names and returns the first descendant
// found along that path. Each step matches the first node (in document order)
// with the given tag inside the previous step's subtree. The second return is
// false when no such path exists.
func (t *Tree) Unwrap(n Node, tags ...string) (Node, bool) {
	cur := n.idx
	for _, tag := range tags {
		found := -1
		for i := cur + 1; i < t.nodes[cur].subtree; i++ {
			if t.nodes[i].tag == tag {
				found = i
				break
			}
		}
		if found < 0 {
			return Node{}, false
		}
		cur = found
	}
	return Node{tree: t, idx: cur}, true
}

// treeBuilder assembles the arena during parsing. Nodes are appended in
// pre-order; closeNode records the subtree extent so descendant queries can
// scan a contiguous index range.
type treeBuilder struct {
	source string
	nodes  []nodeData
	open   []int
}

func newTreeBuilder(source string) *treeBuilder {
	return &treeBuilder{source: source}
}

func (b *treeBuilder) openNode(tag string, start int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, nodeData{tag: tag, start: start, end: start, subtree: -1})
	b.open = append(b.open, idx)
	return idx
}

func (b *treeBuilder) closeNode(end int) {
	idx := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]
	b.nodes[idx].end = end
	b.nodes[idx].subtree = len(b.nodes)
}

// closeAll closes every open node at the given offset. Used when an
// incomplete source is accepted at EOF.
func (b *treeBuilder) closeAll(end int) {
	for len(b.open) > 0 {
		b.closeNode(end)
	}
}

func (b *treeBuilder) leaf(tag string, start, end int) {
	b.nodes = append(b.nodes, nodeData{tag: tag, start: start, end: end, subtree: len(b.nodes) + 1})
}

// mark and rollback allow speculative node construction to be undone when a
// construct turns out to be something else.
type builderMark struct {
	nodes int
	open  int
}

func (b *treeBuilder) mark() builderMark {
	return builderMark{nodes: len(b.nodes), open: len(b.open)}
}

func (b *treeBuilder) rollback(m builderMark) {
	b.nodes = b.nodes[:m.nodes]
	b.open = b.open[:m.open]
}

func (b *treeBuilder) setTag(idx int, tag string) {
	b.nodes[idx].tag = tag
}

func (b *treeBuilder) finish() *Tree {
	return &Tree{source: b.source, nodes: b.nodes}
}

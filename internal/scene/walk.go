package scene

// CountVertices walks the hierarchy rooted at root in pre-order (node,
// child subtree, sibling subtree) and returns one entry per animated node:
// the node's attach vertex count, or 0 when it has none. Nodes flagged
// ObjectNoAnimate are skipped but their children and siblings are still
// visited. A node already on the current path is not entered again.
func CountVertices(root *Object) []int {
	counts := []int{}
	onPath := make(map[*Object]bool)
	var walk func(o *Object)
	walk = func(o *Object) {
		if o == nil || onPath[o] {
			return
		}
		onPath[o] = true
		if o.Flags&ObjectNoAnimate == 0 {
			n := 0
			if o.Attach != nil {
				n = o.Attach.Vertices.Len()
			}
			counts = append(counts, n)
		}
		walk(o.Child)
		walk(o.Sibling)
		delete(onPath, o)
	}
	walk(root)
	return counts
}

// Walk calls fn for every node under root in the same order CountVertices
// uses, passing the parent node (nil for root and its siblings).
func Walk(root *Object, fn func(o, parent *Object)) {
	onPath := make(map[*Object]bool)
	var walk func(o, parent *Object)
	walk = func(o, parent *Object) {
		if o == nil || onPath[o] {
			return
		}
		onPath[o] = true
		fn(o, parent)
		walk(o.Child, o)
		walk(o.Sibling, parent)
		delete(onPath, o)
	}
	walk(root, nil)
}

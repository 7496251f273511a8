package ssa

// Dominators holds the dominator tree of a function's reachable blocks
type Dominators struct {
	idom  map[*Block]*Block
	order map[*Block]int // reverse postorder number
}

// ReversePostorder lists the blocks reachable from the entry so that every
// block comes after its dominators
func ReversePostorder(fn *Function) []*Block {
	if fn.Entry == nil {
		return nil
	}

	visited := make(map[*Block]bool)
	var post []*Block

	var visit func(b *Block)
	visit = func(b *Block) {
		visited[b] = true
		for _, succ := range b.Successors() {
			if succ != nil && !visited[succ] {
				visit(succ)
			}
		}
		post = append(post, b)
	}
	visit(fn.Entry)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// ComputeDominators builds the dominator tree with the iterative
// Cooper-Harvey-Kennedy algorithm
func ComputeDominators(fn *Function) *Dominators {
	rpo := ReversePostorder(fn)
	d := &Dominators{
		idom:  make(map[*Block]*Block),
		order: make(map[*Block]int),
	}
	if len(rpo) == 0 {
		return d
	}
	for i, b := range rpo {
		d.order[b] = i
	}

	entry := rpo[0]
	d.idom[entry] = entry

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *Block
			for _, pred := range b.Predecessors {
				if _, ok := d.idom[pred]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = pred
				} else {
					newIdom = d.intersect(pred, newIdom)
				}
			}
			if newIdom != nil && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *Dominators) intersect(a, b *Block) *Block {
	for a != b {
		for d.order[a] > d.order[b] {
			a = d.idom[a]
		}
		for d.order[b] > d.order[a] {
			b = d.idom[b]
		}
	}
	return a
}

// Reachable reports whether b can be reached from the entry
func (d *Dominators) Reachable(b *Block) bool {
	_, ok := d.order[b]
	return ok
}

// Idom returns the immediate dominator of b; the entry is its own
func (d *Dominators) Idom(b *Block) *Block {
	return d.idom[b]
}

// Dominates reports whether every path from the entry to b passes through a
func (d *Dominators) Dominates(a, b *Block) bool {
	if !d.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		parent := d.idom[b]
		if parent == b {
			return false
		}
		b = parent
	}
}

package grammar

// Program is the structural view of a source file. Loops nest, and
// commentary is kept so that the formatter can put it back.
type Program struct {
	Items []*Item `parser:"@@*"`
}

// Item is exactly one of a comment run, a loop or a straight-line operator.
type Item struct {
	Comment *Comment `parser:"  @@"`
	Loop    *Loop    `parser:"| @@"`
	Op      string   `parser:"| @(\"+\" | \"-\" | \"<\" | \">\" | \".\" | \",\")"`
}

type Comment struct {
	Text string `parser:"@Comment"`
}

type Loop struct {
	Body []*Item `parser:"\"[\" @@* \"]\""`
}

// Ops counts the operators in the program, brackets included.
func (p *Program) Ops() int {
	return countOps(p.Items)
}

// Depth returns the deepest loop nesting level, 0 for straight-line code.
func (p *Program) Depth() int {
	return depth(p.Items)
}

func countOps(items []*Item) int {
	n := 0
	for _, it := range items {
		switch {
		case it.Loop != nil:
			n += 2 + countOps(it.Loop.Body)
		case it.Op != "":
			n++
		}
	}
	return n
}

func depth(items []*Item) int {
	deepest := 0
	for _, it := range items {
		if it.Loop == nil {
			continue
		}
		if d := 1 + depth(it.Loop.Body); d > deepest {
			deepest = d
		}
	}
	return deepest
}

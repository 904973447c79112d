package workflow

// Compiled is an immutable, executable graph produced by Graph.Compile().
//
// Compiled is safe for concurrent use: the structure cannot change after
// compilation, and each Run carries its own state.
type Compiled[S any] struct {
	nodes   map[string]NodeFunc[S]
	edges   map[string]string
	routers map[string]RouterFunc[S]
	fanOuts map[string]fanOut
	entry   string
}

// Entry returns the entry node ID.
func (c *Compiled[S]) Entry() string { return c.entry }

// NodeIDs returns all node identifiers in the graph, in no particular order.
func (c *Compiled[S]) NodeIDs() []string {
	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode reports whether a node exists in the graph.
func (c *Compiled[S]) HasNode(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// IsConditional reports whether the node has a router bound to it.
func (c *Compiled[S]) IsConditional(id string) bool {
	_, ok := c.routers[id]
	return ok
}

// IsFanOut reports whether the node is a declared fork point.
func (c *Compiled[S]) IsFanOut(id string) bool {
	_, ok := c.fanOuts[id]
	return ok
}

// Branches returns the branch entry nodes of a fan-out node, or nil.
func (c *Compiled[S]) Branches(id string) []string {
	fo, ok := c.fanOuts[id]
	if !ok {
		return nil
	}
	return append([]string(nil), fo.branches...)
}

func (c *Compiled[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, ok := c.nodes[id]
	return fn, ok
}

func (c *Compiled[S]) getRouter(id string) (RouterFunc[S], bool) {
	r, ok := c.routers[id]
	return r, ok
}

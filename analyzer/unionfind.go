package analyzer

import "sort"

// regionSet is a union-find over duplicated windows
type regionSet struct {
	index  map[window]int
	nodes  []window
	parent []int
	size   []int
}

func newRegionSet() *regionSet {
	return &regionSet{index: make(map[window]int)}
}

// node returns the id of w, adding it as a singleton region on first use
func (rs *regionSet) node(w window) int {
	if id, ok := rs.index[w]; ok {
		return id
	}
	id := len(rs.nodes)
	rs.index[w] = id
	rs.nodes = append(rs.nodes, w)
	rs.parent = append(rs.parent, id)
	rs.size = append(rs.size, 1)
	return id
}

// root finds the representative of id, halving the path on the way
func (rs *regionSet) root(id int) int {
	for rs.parent[id] != id {
		rs.parent[id] = rs.parent[rs.parent[id]]
		id = rs.parent[id]
	}
	return id
}

// link merges the regions of a and b, attaching the smaller under the larger
func (rs *regionSet) link(a, b window) {
	ra, rb := rs.root(rs.node(a)), rs.root(rs.node(b))
	if ra == rb {
		return
	}
	if rs.size[ra] < rs.size[rb] {
		ra, rb = rb, ra
	}
	rs.parent[rb] = ra
	rs.size[ra] += rs.size[rb]
}

// regions returns every region with its windows in document order,
// ordered by each region's first window
func (rs *regionSet) regions() [][]window {
	ordered := make([]int, len(rs.nodes))
	for i := range ordered {
		ordered[i] = i
	}
	sort.Slice(ordered, func(i, j int) bool {
		return rs.nodes[ordered[i]].before(rs.nodes[ordered[j]])
	})

	slot := make(map[int]int)
	var out [][]window
	for _, id := range ordered {
		r := rs.root(id)
		i, ok := slot[r]
		if !ok {
			i = len(out)
			slot[r] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], rs.nodes[id])
	}
	return out
}

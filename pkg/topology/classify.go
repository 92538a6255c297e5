package topology

// Vertex is the compiled per-vertex record.
type Vertex struct {
	Role   Role
	Level  int32   // 0 = unassigned, kinematic = 1
	Depth  float32 // (Level-1)/(MaxLevel-1)
	Parent int32   // -1 if none
	Root   int32   // -1 if none
	End    bool    // movable with no children
}

// Classification is the output of Classify.
type Classification struct {
	Roles    []Role
	Levels   []int32
	Depths   []float32
	MaxLevel int32
}

// Classify assigns BFS levels from kinematic vertices and normalizes them
// into depths. Fixed vertices without a movable neighbour become Extend.
//
// Levels are assigned in layers: a pass only reads levels set by earlier
// passes, so a vertex's level is 1 + its graph distance to the nearest
// kinematic vertex.
func Classify(adj *Adjacency, roles []Role) *Classification {
	n := len(roles)
	c := &Classification{
		Roles:  make([]Role, n),
		Levels: make([]int32, n),
		Depths: make([]float32, n),
	}
	copy(c.Roles, roles)

	for v := 0; v < n; v++ {
		if c.Roles[v] != RoleFixed {
			continue
		}
		hasMove := false
		for _, nb := range adj.Of(int32(v)) {
			if roles[nb] == RoleMove {
				hasMove = true
				break
			}
		}
		if !hasMove {
			c.Roles[v] = RoleExtend
		}
	}

	for v := 0; v < n; v++ {
		if c.Roles[v].IsKinematic() {
			c.Levels[v] = 1
		}
	}

	maxLevel := int32(0)
	for v := 0; v < n; v++ {
		if c.Levels[v] > maxLevel {
			maxLevel = c.Levels[v]
		}
	}

	layer := int32(1)
	var promoted []int32
	for {
		promoted = promoted[:0]
		for v := 0; v < n; v++ {
			if c.Roles[v] != RoleMove || c.Levels[v] != 0 {
				continue
			}
			best := int32(0)
			for _, nb := range adj.Of(int32(v)) {
				lv := c.Levels[nb]
				if lv == 0 || lv > layer {
					continue
				}
				if best == 0 || lv < best {
					best = lv
				}
			}
			if best != 0 {
				promoted = append(promoted, int32(v))
			}
		}
		if len(promoted) == 0 {
			break
		}
		layer++
		for _, v := range promoted {
			c.Levels[v] = layer
		}
		maxLevel = layer
	}
	c.MaxLevel = maxLevel

	for v := 0; v < n; v++ {
		c.Depths[v] = NormalizeDepth(c.Levels[v], maxLevel)
	}
	return c
}

// NormalizeDepth maps a level onto [0, 1]. Unassigned levels map to 0.
func NormalizeDepth(level, maxLevel int32) float32 {
	if level <= 0 || maxLevel <= 1 {
		return 0
	}
	return float32(level-1) / float32(maxLevel-1)
}

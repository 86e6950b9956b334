package acoustic

import "github.com/example/lvcsr-decode/internal/amodel"

// cache is the two-dimensional [frame][state_id] outprob cache (spec §4.1).
type cache struct {
	rows [][]amodel.LogProb
}

func newCache(framenum, totalStates int) *cache {
	c := &cache{rows: make([][]amodel.LogProb, framenum)}
	for t := range c.rows {
		row := make([]amodel.LogProb, totalStates)
		for i := range row {
			row[i] = unset
		}
		c.rows[t] = row
	}
	return c
}

func (c *cache) get(t int, sid amodel.StateID) (amodel.LogProb, bool) {
	if t < 0 || t >= len(c.rows) || int(sid) < 0 || int(sid) >= len(c.rows[t]) {
		return 0, false
	}
	v := c.rows[t][sid]
	return v, v > unset
}

func (c *cache) set(t int, sid amodel.StateID, v amodel.LogProb) {
	if t < 0 || t >= len(c.rows) || int(sid) < 0 || int(sid) >= len(c.rows[t]) {
		return
	}
	c.rows[t][sid] = v
}

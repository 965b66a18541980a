package pattern

import "slices"

// Chain is an ordered list of bank ids played back to back. The same id may
// appear more than once.
type Chain struct {
	ids []string
}

func (c *Chain) Append(id string) {
	c.ids = append(c.ids, id)
}

// RemoveAt drops the entry at i. It reports false when i is out of range.
func (c *Chain) RemoveAt(i int) bool {
	if i < 0 || i >= len(c.ids) {
		return false
	}
	c.ids = slices.Delete(c.ids, i, i+1)
	return true
}

// RemoveID drops every entry equal to id and returns how many were removed.
func (c *Chain) RemoveID(id string) int {
	before := len(c.ids)
	c.ids = slices.DeleteFunc(c.ids, func(s string) bool { return s == id })
	return before - len(c.ids)
}

func (c *Chain) Clear()        { c.ids = nil }
func (c *Chain) Len() int      { return len(c.ids) }
func (c *Chain) IDs() []string { return slices.Clone(c.ids) }

// At returns the id at i.
func (c *Chain) At(i int) (string, bool) {
	if i < 0 || i >= len(c.ids) {
		return "", false
	}
	return c.ids[i], true
}

package feed

import "github.com/anonto42/pitchfeed/internal/models"

// Collection is the ordered, id-keyed list of cards shown in the feed.
// It is not safe for concurrent use; the Orchestrator guards it.
type Collection struct {
	items []models.FeedItem
	index map[string]int
}

func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Replace discards every card and starts over with items.
func (c *Collection) Replace(items []models.FeedItem) int {
	c.items = c.items[:0]
	c.index = make(map[string]int, len(items))
	return c.Append(items)
}

// Append adds items after the existing ones, skipping ids already present,
// and returns how many were added.
func (c *Collection) Append(items []models.FeedItem) int {
	added := 0
	for _, it := range items {
		if _, ok := c.index[it.ID]; ok {
			continue
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
		added++
	}
	return added
}

func (c *Collection) Len() int { return len(c.items) }

func (c *Collection) At(i int) (models.FeedItem, bool) {
	if i < 0 || i >= len(c.items) {
		return models.FeedItem{}, false
	}
	return c.items[i], true
}

func (c *Collection) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// IncrementBoost bumps the local boost count of id and returns the new value.
func (c *Collection) IncrementBoost(id string) (int, bool) {
	i, ok := c.index[id]
	if !ok {
		return 0, false
	}
	c.items[i].BoostCount++
	return c.items[i].BoostCount, true
}

// Update overwrites the card with the same id in place.
func (c *Collection) Update(item models.FeedItem) (int, bool) {
	i, ok := c.index[item.ID]
	if !ok {
		return 0, false
	}
	c.items[i] = item
	return i, true
}

// Snapshot returns a copy of the cards.
func (c *Collection) Snapshot() []models.FeedItem {
	out := make([]models.FeedItem, len(c.items))
	copy(out, c.items)
	return out
}

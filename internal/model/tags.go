package model

// TagIndex groups endpoints by tag. An endpoint with several tags is shared
// between their buckets, not copied.
type TagIndex struct {
	order   []string
	buckets map[string][]*Endpoint
}

func NewTagIndex() *TagIndex {
	return &TagIndex{buckets: map[string][]*Endpoint{}}
}

// Add files ep under each of its tags.
func (t *TagIndex) Add(ep *Endpoint) {
	for _, tag := range ep.Tags {
		if _, ok := t.buckets[tag]; !ok {
			t.order = append(t.order, tag)
		}
		t.buckets[tag] = append(t.buckets[tag], ep)
	}
}

// Tags returns tag names in first-seen order.
func (t *TagIndex) Tags() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

func (t *TagIndex) Endpoints(tag string) []*Endpoint {
	if t == nil {
		return nil
	}
	return t.buckets[tag]
}

func (t *TagIndex) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Map returns the index as tag -> endpoint ids, for serialization.
func (t *TagIndex) Map() map[string][]string {
	out := make(map[string][]string, t.Len())
	for _, tag := range t.Tags() {
		ids := make([]string, 0, len(t.buckets[tag]))
		for _, ep := range t.buckets[tag] {
			ids = append(ids, ep.ID)
		}
		out[tag] = ids
	}
	return out
}

package crawl

// Queue is an insertion-ordered set of URLs. Keys are normalized with
// NormalizeURL; the URLs themselves are kept as added.
type Queue struct {
	items   []string
	visited map[string]bool
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a URL if it hasn't been seen before and reports whether it
// was added.
func (q *Queue) Add(url string) bool {
	key := NormalizeURL(url)
	if q.visited[key] {
		return false
	}
	q.visited[key] = true
	q.items = append(q.items, url)
	return true
}

// Len returns the total number of unique URLs seen.
func (q *Queue) Len() int {
	return len(q.items)
}

// All returns all URLs in insertion order.
func (q *Queue) All() []string {
	return append([]string(nil), q.items...)
}

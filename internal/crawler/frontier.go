package crawler

import "container/list"

// Entry is one pending unit of work in the frontier.
type Entry struct {
	// URL is the absolute URL to fetch.
	URL string

	// Depth is the number of links followed from the seed.
	Depth int

	// Retry marks a URL that has already been dispatched and failed.
	// Retry entries are not subject to the visited check.
	Retry bool
}

// Frontier is the FIFO queue of pending URLs together with the set of URLs
// that have been dispatched at least once.
//
// A URL enters the visited set only when it is accepted for its first
// dispatch. Duplicate entries may sit in the queue; all but the first are
// discarded when they reach the head.
//
// Frontier is not safe for concurrent use. A session touches it only from
// its control goroutine.
type Frontier struct {
	queue   *list.List
	visited map[string]struct{}
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queue:   list.New(),
		visited: make(map[string]struct{}),
	}
}

// Enqueue appends a newly discovered URL.
func (f *Frontier) Enqueue(rawURL string, depth int) {
	f.queue.PushBack(Entry{URL: rawURL, Depth: depth})
}

// Requeue appends a URL that is due for another attempt.
func (f *Frontier) Requeue(rawURL string, depth int) {
	f.queue.PushBack(Entry{URL: rawURL, Depth: depth, Retry: true})
}

// AcceptNext removes the head of the queue. The boolean is false when the
// queue is empty or when the head is a first-time entry for a URL that was
// already visited; such entries are dropped. Accepting a first-time entry
// does not mark it visited, the caller does that once it commits to
// dispatching.
func (f *Frontier) AcceptNext() (Entry, bool) {
	front := f.queue.Front()
	if front == nil {
		return Entry{}, false
	}
	entry := f.queue.Remove(front).(Entry) //nolint:forcetypeassert // only Entry values are pushed

	if !entry.Retry && f.Visited(entry.URL) {
		return entry, false
	}
	return entry, true
}

// MarkVisited records rawURL as dispatched. It reports false if the URL
// was already visited.
func (f *Frontier) MarkVisited(rawURL string) bool {
	key := visitKey(rawURL)
	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// Visited reports whether rawURL has been dispatched.
func (f *Frontier) Visited(rawURL string) bool {
	_, ok := f.visited[visitKey(rawURL)]
	return ok
}

// Len returns the number of queued entries, duplicates included.
func (f *Frontier) Len() int {
	return f.queue.Len()
}

// VisitedCount returns the number of distinct URLs dispatched so far.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

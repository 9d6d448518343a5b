package crawler

// frontier is a FIFO queue of discovered-but-unfetched URLs. A URL is
// enqueued at most once per crawl, so two pages linking to the same target
// before it is fetched do not queue it twice.
type frontier struct {
	queue    []string
	enqueued map[string]struct{}
}

func newFrontier(seed string) *frontier {
	f := &frontier{enqueued: make(map[string]struct{})}
	f.push(seed)
	return f
}

// push adds u unless it was ever enqueued before. Reports whether it was added.
func (f *frontier) push(u string) bool {
	if _, ok := f.enqueued[u]; ok {
		return false
	}
	f.enqueued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

func (f *frontier) pop() string {
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return u
}

func (f *frontier) len() int {
	return len(f.queue)
}

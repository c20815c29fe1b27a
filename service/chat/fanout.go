package chat

import (
	"hash/fnv"
	"sync"
)

type fanoutJob struct {
	conn    *Conn
	payload []byte
}

// Fanout hands frames to connection queues from a fixed worker pool. A
// connection always maps to the same worker, so frames reach it in
// submission order.
type Fanout struct {
	shards []chan fanoutJob
	wg     sync.WaitGroup

	mu     sync.RWMutex // guards closed against sends on closed shards
	closed bool
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{shards: make([]chan fanoutJob, workers)}
	for i := range f.shards {
		jobs := make(chan fanoutJob, queue)
		f.shards[i] = jobs
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			for job := range jobs {
				// slow clients lose the frame, see Conn.Enqueue
				job.conn.Enqueue(job.payload)
			}
		}()
	}
	return f
}

func (f *Fanout) shard(c *Conn) chan fanoutJob {
	h := fnv.New32a()
	_, _ = h.Write([]byte(c.ID()))
	return f.shards[h.Sum32()%uint32(len(f.shards))]
}

// Broadcast queues payload for conns. After Close the frames are dropped.
func (f *Fanout) Broadcast(conns []*Conn, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for _, c := range conns {
		f.shard(c) <- fanoutJob{conn: c, payload: payload}
	}
}

// Close drains pending jobs and stops the workers.
func (f *Fanout) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, s := range f.shards {
		close(s)
	}
	f.mu.Unlock()
	f.wg.Wait()
}

package disk

import (
	"sync"
)

// Request is one queued transfer. Its completion is signalled on done.
type Request struct {
	write bool
	a     uint64
	data  Block
	done  chan error
}

// Wait blocks until the device has completed the request and returns its
// outcome. For reads, the data has been stored in the buffer passed to
// SubmitRead when Wait returns nil.
func (r *Request) Wait() error {
	return <-r.done
}

// Done returns a channel that receives the request's outcome exactly once.
func (r *Request) Done() <-chan error {
	return r.done
}

// Queue services requests against an underlying synchronous disk on a
// background goroutine. Requests complete in submission order.
//
// Queue also implements Disk by submitting a request and waiting for it.
type Queue struct {
	d        Disk
	mu       *sync.Mutex
	reqs     chan *Request
	shutdown bool
	wg       *sync.WaitGroup
}

var _ Disk = (*Queue)(nil)

func MkQueue(d Disk, depth int) *Queue {
	q := &Queue{
		d:    d,
		mu:   new(sync.Mutex),
		reqs: make(chan *Request, depth),
		wg:   new(sync.WaitGroup),
	}
	q.wg.Add(1)
	go func() { q.worker() }()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for req := range q.reqs {
		var err error
		if req.write {
			err = q.d.Write(req.a, req.data)
		} else {
			err = q.d.ReadTo(req.a, req.data)
		}
		req.done <- err
	}
}

func (q *Queue) submit(req *Request) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		req.done <- ErrClosed
		return req
	}
	q.reqs <- req
	return req
}

// SubmitRead queues a read of block a into buf.
func (q *Queue) SubmitRead(a uint64, buf Block) *Request {
	return q.submit(&Request{a: a, data: buf, done: make(chan error, 1)})
}

// SubmitWrite queues a write of v to block a. The caller must not modify v
// until the request completes.
func (q *Queue) SubmitWrite(a uint64, v Block) *Request {
	return q.submit(&Request{write: true, a: a, data: v, done: make(chan error, 1)})
}

func (q *Queue) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return ErrBlockSize
	}
	return q.SubmitRead(a, buf).Wait()
}

func (q *Queue) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := q.ReadTo(a, buf)
	return buf, err
}

func (q *Queue) Write(a uint64, v Block) error {
	return q.SubmitWrite(a, v).Wait()
}

func (q *Queue) Size() (uint64, error) {
	return q.d.Size()
}

// Barrier waits for every request submitted before it, then issues a
// barrier on the underlying disk.
func (q *Queue) Barrier() error {
	// the queue is FIFO, so a no-op read of block 0 drains earlier requests
	sz, err := q.d.Size()
	if err != nil {
		return err
	}
	if sz > 0 {
		if err := q.ReadTo(0, make(Block, BlockSize)); err != nil {
			return err
		}
	}
	return q.d.Barrier()
}

// Shutdown stops accepting requests and waits for queued ones to finish.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	close(q.reqs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) Close() error {
	q.Shutdown()
	return q.d.Close()
}

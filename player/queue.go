package player

import (
	"container/heap"
	"time"
)

// job is one armed timer: a callback with an absolute fire time. Jobs
// carry the epoch they were armed in; Stop bumps the epoch so stale
// jobs can never run.
type job struct {
	at    time.Time
	epoch uint64
	fn    func()
}

// jobQueue is a min-heap keyed by fire time. All pending work for a
// loop iteration lives here; cancellation is clearing the queue.
type jobQueue []*job

func (q jobQueue) Len() int            { return len(q) }
func (q jobQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q jobQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x interface{}) { *q = append(*q, x.(*job)) }

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return j
}

func (q *jobQueue) push(j *job) {
	heap.Push(q, j)
}

// peek returns the earliest job without removing it.
func (q jobQueue) peek() *job {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// popDue removes and returns the earliest job if it is due and belongs
// to the given epoch. Stale-epoch jobs are discarded.
func (q *jobQueue) popDue(now time.Time, epoch uint64) *job {
	for len(*q) > 0 {
		head := (*q)[0]
		if head.at.After(now) {
			return nil
		}
		j := heap.Pop(q).(*job)
		if j.epoch == epoch {
			return j
		}
	}
	return nil
}

func (q *jobQueue) clear() {
	*q = (*q)[:0]
}

package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueOrdering(t *testing.T) {
	assert := assert.New(t)

	base := time.Now()
	var q jobQueue
	order := []int{}
	for _, d := range []int{30, 10, 20, 0} {
		d := d
		q.push(&job{at: base.Add(time.Duration(d) * time.Millisecond), fn: func() {
			order = append(order, d)
		}})
	}

	assert.Equal(base, q.peek().at, "earliest job at the head")

	late := base.Add(time.Second)
	for {
		j := q.popDue(late, 0)
		if j == nil {
			break
		}
		j.fn()
	}
	assert.Equal([]int{0, 10, 20, 30}, order)
}

func TestQueuePopDueNotYet(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	var q jobQueue
	q.push(&job{at: now.Add(time.Hour), fn: func() {}})

	assert.Nil(q.popDue(now, 0))
	assert.Equal(1, q.Len(), "future job stays queued")
}

func TestQueueDiscardsStaleEpochs(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	var q jobQueue
	fired := 0
	q.push(&job{at: now.Add(-2 * time.Millisecond), epoch: 0, fn: func() { fired++ }})
	q.push(&job{at: now.Add(-1 * time.Millisecond), epoch: 1, fn: func() { fired++ }})

	// Asking for epoch 1 skips past the stale epoch-0 job.
	j := q.popDue(now, 1)
	assert.NotNil(j)
	assert.Equal(uint64(1), j.epoch)
	assert.Equal(0, q.Len(), "stale job was discarded, not returned")
}

func TestQueueClear(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	var q jobQueue
	q.push(&job{at: now})
	q.push(&job{at: now.Add(time.Millisecond)})
	q.clear()

	assert.Nil(q.peek())
	assert.Nil(q.popDue(now.Add(time.Second), 0))
}

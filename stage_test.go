package skorche_test

import (
	"sort"
	"sync"
	"time"

	gc "gopkg.in/check.v1"

	"github.com/AnsBalin/skorche"
)

var _ = gc.Suite(new(StageTestSuite))

type StageTestSuite struct{}

// TestSingleWorkerOrdering checks the single-worker ordering invariant:
// with max_workers=1, output order matches input order exactly.
func (s StageTestSuite) TestSingleWorkerOrdering(c *gc.C) {
	pipeline := skorche.New(nil, nil)
	square := skorche.Promote(func(x any) any { return x.(int) * x.(int) })

	items := intsAsAny(1, 2, 3, 4, 5, 6, 7, 8)
	qIn := skorche.NewQueue(skorche.WithFixedInputs(items))
	qOut, err := pipeline.Map(square, qIn, nil)
	c.Assert(err, gc.IsNil)

	c.Assert(pipeline.Run(), gc.IsNil)
	c.Assert(pipeline.Shutdown(), gc.IsNil)

	c.Assert(qOut.Flush(), gc.DeepEquals, intsAsAny(1, 4, 9, 16, 25, 36, 49, 64))
}

// TestFixedWorkerPoolConcurrency checks that a stage configured with N
// workers genuinely runs N of them concurrently: every worker reaches a
// rendezvous point before any is released, mirroring the teacher's
// FixedWorkerPool synchronization test.
func (s StageTestSuite) TestFixedWorkerPoolConcurrency(c *gc.C) {
	numWorkers := 6
	syncCh := make(chan struct{}, numWorkers)
	rendezvousCh := make(chan struct{})

	slow := skorche.NewTask(func(x any) (any, error) {
		syncCh <- struct{}{}
		<-rendezvousCh
		return x, nil
	}, skorche.WithMaxWorkers(numWorkers))

	pipeline := skorche.New(nil, nil)
	qIn := skorche.NewQueue(skorche.WithFixedInputs(intsAsAny(0, 1, 2, 3, 4, 5)))
	qOut, err := pipeline.Map(slow, qIn, nil)
	c.Assert(err, gc.IsNil)
	c.Assert(pipeline.Run(), gc.IsNil)

	for i := 0; i < numWorkers; i++ {
		select {
		case <-syncCh:
		case <-time.After(10 * time.Second):
			c.Fatalf("timed out waiting for worker %d to reach sync point", i)
		}
	}
	close(rendezvousCh)

	c.Assert(pipeline.Shutdown(), gc.IsNil)
	c.Assert(qOut.Flush(), gc.HasLen, numWorkers)
}

// TestConservationWithFanout checks the count-conservation invariant across
// a split/merge fan-out with multiple task workers on each branch: every
// input item appears exactly once downstream of the merge.
func (s StageTestSuite) TestConservationWithFanout(c *gc.C) {
	pipeline := skorche.New(nil, nil)

	isEven := func(x any) any { return x.(int)%2 == 0 }
	identity := func(tag string) *skorche.Task {
		return skorche.NewTask(func(x any) (any, error) { return x, nil }, skorche.WithTaskName(tag), skorche.WithMaxWorkers(3))
	}

	items := make([]any, 0, 100)
	for i := 0; i < 100; i++ {
		items = append(items, i)
	}

	qIn := skorche.NewQueue(skorche.WithFixedInputs(items))
	branches, err := pipeline.Split(isEven, qIn, nil)
	c.Assert(err, gc.IsNil)

	qEvenOut, err := pipeline.Map(identity("even"), branches[true], nil)
	c.Assert(err, gc.IsNil)
	qOddOut, err := pipeline.Map(identity("odd"), branches[false], nil)
	c.Assert(err, gc.IsNil)

	qOut, err := pipeline.Merge([]*skorche.Queue{qEvenOut, qOddOut}, nil)
	c.Assert(err, gc.IsNil)

	c.Assert(pipeline.Run(), gc.IsNil)
	c.Assert(pipeline.Shutdown(), gc.IsNil)

	got := qOut.Flush()
	c.Assert(got, gc.HasLen, len(items))

	gotInts := make([]int, len(got))
	for i, x := range got {
		gotInts[i] = x.(int)
	}
	sort.Ints(gotInts)

	wantInts := make([]int, len(items))
	for i, x := range items {
		wantInts[i] = x.(int)
	}
	c.Assert(gotInts, gc.DeepEquals, wantInts)
}

// TestCallDirect checks that Task.Call invokes the function directly,
// bypassing the pipeline entirely.
func (s StageTestSuite) TestCallDirect(c *gc.C) {
	var mu sync.Mutex
	calls := 0

	t := skorche.NewTask(func(x any) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return x.(int) + 1, nil
	})

	y, err := t.Call(41)
	c.Assert(err, gc.IsNil)
	c.Assert(y, gc.Equals, 42)
	c.Assert(calls, gc.Equals, 1)
}

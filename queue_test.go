package skorche_test

import (
	gc "gopkg.in/check.v1"

	"github.com/AnsBalin/skorche"
	"github.com/AnsBalin/skorche/errs"
)

var _ = gc.Suite(new(QueueTestSuite))

type QueueTestSuite struct{}

func (s *QueueTestSuite) TestFixedInputsTerminateWithEOS(c *gc.C) {
	q := skorche.NewQueue(skorche.WithFixedInputs(intsAsAny(1, 2, 3)))
	c.Assert(q.Start(), gc.IsNil)

	c.Assert(q.Get(), gc.Equals, 1)
	c.Assert(q.Get(), gc.Equals, 2)
	c.Assert(q.Get(), gc.Equals, 3)
	c.Assert(q.Get(), gc.Equals, skorche.EOS)
}

func (s *QueueTestSuite) TestStartTwiceIsLifecycleError(c *gc.C) {
	q := skorche.NewQueue()
	c.Assert(q.Start(), gc.IsNil)
	err := q.Start()
	c.Assert(err, gc.NotNil)
	c.Assert(errs.Is(err, errs.LifecycleError), gc.Equals, true)
}

func (s *QueueTestSuite) TestEmptyBeforeAndAfterStart(c *gc.C) {
	q := skorche.NewQueue()
	c.Assert(q.Empty(), gc.Equals, true)

	q.Put(1)
	c.Assert(q.Empty(), gc.Equals, false)

	c.Assert(q.Start(), gc.IsNil)
	c.Assert(q.Empty(), gc.Equals, false)
	c.Assert(q.Get(), gc.Equals, 1)
	c.Assert(q.Empty(), gc.Equals, true)
}

func (s *QueueTestSuite) TestFlushStopsAtEOS(c *gc.C) {
	q := skorche.NewQueue(skorche.WithFixedInputs(intsAsAny(1, 2, 3)))
	q.Put(4) // pre-start Put after WithFixedInputs's trailing EOS: appended after it

	got := q.Flush()
	c.Assert(got, gc.DeepEquals, intsAsAny(1, 2, 3))
}

func (s *QueueTestSuite) TestPutBeforeStartIsBuffered(c *gc.C) {
	q := skorche.NewQueue()
	q.Put("a")
	q.Put("b")
	c.Assert(q.Start(), gc.IsNil)

	c.Assert(q.Get(), gc.Equals, "a")
	c.Assert(q.Get(), gc.Equals, "b")
}

package skorche

import (
	"github.com/sirupsen/logrus"

	"github.com/AnsBalin/skorche/errs"
)

// stageSpec binds a Task to its input and output queues, forming one task
// stage: N concurrent workers reading qIn and writing qOut.
type stageSpec struct {
	task *Task
	qIn  *Queue
	qOut *Queue
}

// runStage spawns the stage's worker activities, waits for all of them to
// observe EOS and exit, then forwards exactly one EOS to qOut. This is
// Strategy A from the task-stage sentinel-forwarding contract: each worker
// that reads EOS re-enqueues it onto qIn before exiting, so the next worker
// in line (if any) also observes and re-forwards it. Every one of the N
// workers both consumes one EOS and produces one EOS, so exactly one EOS is
// left unconsumed on qIn once all N have exited, regardless of N; the stage
// drains that leftover copy and is the one to emit EOS on qOut.
func (m *PipelineManager) runStage(st *stageSpec) {
	defer m.wg.Done()

	done := make(chan struct{}, st.task.maxWorkers)
	for i := 0; i < st.task.maxWorkers; i++ {
		if m.metrics != nil {
			m.metrics.activeWorkers.WithLabelValues(st.task.name).Inc()
		}
		go func(workerID int) {
			m.runWorker(st, workerID)
			if m.metrics != nil {
				m.metrics.activeWorkers.WithLabelValues(st.task.name).Dec()
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < st.task.maxWorkers; i++ {
		<-done
	}

	st.qIn.Get() // discard the single leftover EOS copy
	st.qOut.Put(EOS)
}

// runWorker implements the per-worker loop: get, apply the task function,
// put the result, repeat until EOS.
func (m *PipelineManager) runWorker(st *stageSpec, workerID int) {
	for {
		x := st.qIn.Get()
		if isEOS(x) {
			st.qIn.Put(EOS)
			return
		}

		y, err := invokeTask(st.task, x)
		if err != nil {
			fields := logrus.Fields(st.task.Stats())
			fields["worker"] = workerID
			st.task.logger.WithFields(fields).WithError(err).Error("task error, dropping item")
			if m.metrics != nil {
				m.metrics.itemsDropped.WithLabelValues(st.task.name, "task_error").Inc()
			}
			continue
		}

		st.qOut.Put(y)
		if m.metrics != nil {
			m.metrics.itemsProcessed.WithLabelValues(st.task.name).Inc()
		}
	}
}

// invokeTask calls t's function, converting both an explicit error return
// and a recovered panic into a single TaskError.
func invokeTask(t *Task, x any) (y any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.TaskError, "task %q panicked: %v", t.name, r)
		}
	}()

	y, taskErr := t.fn(x)
	if taskErr != nil {
		return nil, errs.New(errs.TaskError, "task %q: %w", t.name, taskErr)
	}
	return y, nil
}

package skorche

// DefaultPipeline is the package-level pipeline every top-level helper
// function (Map, Chain, Split, ...) builds against, mirroring the Python
// source's module-level global pipeline instance. Most callers never need
// their own PipelineManager and can use these functions directly.
var DefaultPipeline = New(nil, nil)

// Map registers a task stage on DefaultPipeline. See PipelineManager.Map.
func Map(task *Task, qIn *Queue, qOut *Queue) (*Queue, error) {
	return DefaultPipeline.Map(task, qIn, qOut)
}

// Chain wires a sequence of tasks on DefaultPipeline. See PipelineManager.Chain.
func Chain(tasks []*Task, qIn *Queue, qOut *Queue) (*Queue, error) {
	return DefaultPipeline.Chain(tasks, qIn, qOut)
}

// Split registers a SplitOp on DefaultPipeline. See PipelineManager.Split.
func Split(predicate PredicateFunc, qIn *Queue, values []any) (map[any]*Queue, error) {
	return DefaultPipeline.Split(predicate, qIn, values)
}

// Merge registers a MergeOp on DefaultPipeline. See PipelineManager.Merge.
func Merge(qIns []*Queue, qOut *Queue) (*Queue, error) {
	return DefaultPipeline.Merge(qIns, qOut)
}

// Batch registers a BatchOp on DefaultPipeline. See PipelineManager.Batch.
func Batch(qIn *Queue, qOut *Queue, batchSize int, fillBatch bool) (*Queue, error) {
	return DefaultPipeline.Batch(qIn, qOut, batchSize, fillBatch)
}

// Unbatch registers an UnbatchOp on DefaultPipeline. See PipelineManager.Unbatch.
func Unbatch(qIn *Queue, qOut *Queue) (*Queue, error) {
	return DefaultPipeline.Unbatch(qIn, qOut)
}

// Filter registers a FilterOp on DefaultPipeline. See PipelineManager.Filter.
func Filter(predicate FilterFunc, qIn *Queue, qOut *Queue) (*Queue, error) {
	return DefaultPipeline.Filter(predicate, qIn, qOut)
}

// Run starts DefaultPipeline. See PipelineManager.Run.
func Run() error {
	return DefaultPipeline.Run()
}

// Shutdown drains and stops DefaultPipeline. See PipelineManager.Shutdown.
func Shutdown() error {
	return DefaultPipeline.Shutdown()
}

// Init resets DefaultPipeline to a fresh build state. See PipelineManager.Init.
func Init() {
	DefaultPipeline.Init()
}

// Render snapshots and writes DefaultPipeline's graph. See PipelineManager.Render.
func Render(root *Queue, filename string, skipAnon bool) error {
	return DefaultPipeline.Render(root, filename, skipAnon)
}

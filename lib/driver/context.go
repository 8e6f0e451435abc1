package driver

// AST is an opaque, driver-defined abstract syntax tree. The cluster core
// never inspects it; it only checks presence before handing it to a
// QueryCompiler.
type AST any

// QueryContext is the contract between the query façade and its driver
// collaborators: Pool names the target pool, AST/SQL are filled in over
// the compile/render/execute pipeline, and Ready short circuits straight
// to execution once SQL is final.
type QueryContext struct {
	Pool string
	AST  AST
	SQL  string

	ready bool

	// Result is populated by Connection.Query on success; the cluster
	// core never reads it, only forwards the context through.
	Result any
}

// IsReady reports whether SQL is final and compile/render should be
// skipped.
func (c *QueryContext) IsReady() bool {
	return c.ready
}

// MarkReady flags the context as carrying final SQL.
func (c *QueryContext) MarkReady() {
	c.ready = true
}

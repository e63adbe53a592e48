// Package pipeline runs a corpus through an inference engine into a result
// store, one planned batch at a time.
//
// A Runner walks the batches produced by the planner. For each batch it
// splits members into those already present in the store and those still to
// do, makes a single engine call for the latter, reduces the returned
// matrices to the true sequence lengths (mean-pooling when configured) and
// appends the results. Engine failures are contained: the batch is logged as
// failed, an operator diagnostic names the largest member, and the run moves
// on. Because presence in the store is the only checkpoint, rerunning with the
// same input and store resumes where the previous run stopped.
//
// Every member gets exactly one status record per run in the audit log
// (NEW, EXISTING or FAIL). ReadAuditLog turns a log back into per-id
// outcomes so failed ids can be retried with smaller limits.
package pipeline

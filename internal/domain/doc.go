// Package domain defines the core records of the compliance auditor.
//
// It holds rules, chunks, indexed vectors, evaluation results and the
// capability interfaces (Embedder, Judge) that the rest of the module
// depends on. It may only import the Go standard library.
package domain

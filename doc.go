// Package shoots executes declarative action trees.
//
// Actions (set, call, emit, fetch, ws, if, script, copy) are data,
// usually JSON or YAML, and run against a state through package
// 'core'.  Embedded expressions are handled by package 'expr', HTTP
// requests by 'request', and WebSocket connections by 'conn'.  The
// command-line tool is in 'cmd/shoots'.
package shoots

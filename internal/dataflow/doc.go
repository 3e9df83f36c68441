// Package dataflow implements a single-threaded push-based dataflow runtime.
//
// A Graph owns an arena of operator nodes. Each node has zero or more typed
// input ports (each an unbounded FIFO), a list of subscribers for its single
// output, and a body that is invoked whenever the node is scheduled.
//
// EXECUTION MODEL:
//
// Run pops node ids from a deduplicating FIFO work-list until it is empty.
// For every popped node the runtime:
//  1. Moves the node's pending input queues into the invocation
//  2. Calls the body exactly once
//  3. Puts anything the body did not pull back at the front of its queues
//  4. Delivers every pushed value, in push order, to every subscriber and
//     schedules each subscriber
//
// Every node is scheduled once when it is created, so sources emit on the
// first Run. A node is never present twice in the work-list, but it may be
// rescheduled as soon as it has been popped.
//
// Run returns when the work-list is empty. For monotone graphs (Distinct
// bounding every cycle) this is the least fixpoint of the program.
//
// TYPES:
//
// Ports are typed with generics at construction time. Internally queues
// carry values as `any`; a value reaching a port of the wrong type is a
// programming error and panics with a *GraphError.
//
// Values are shared between subscribers without copying. Bodies must treat
// received values as immutable.
//
// The Stream combinators (Map, Filter, Union, Distinct, Join, Merge) are the
// intended way to build graphs. AddSource, AddOp, AddOp2 and AddSink expose
// the raw node model for custom operators.
package dataflow

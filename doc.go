// Package taskmsg provides an embedded-systems-inspired inter-task messaging
// layer for Go.
//
// This library gives independently scheduled tasks (goroutines with a managed
// lifecycle) three escalating ways to talk: a unique (kind, id) identity in a
// process-wide directory, a bounded notification queue for small fixed-size
// signals, and a bounded byte-ring data channel whose delivery order is locked
// to notification order. On top sits a work dispatcher that executes submitted
// functions one at a time and routes results back over the same channels.
//
// # Quick Start
//
// Create tasks on the global system at application startup:
//
//	defer taskmsg.ShutdownGlobalSystem()
//
//	echo, _ := taskmsg.NewTask(1, "echo", func(ctx context.Context, self *taskmsg.Task) {
//		for {
//			n, err := self.ReceiveNotification(taskmsg.Forever)
//			if err != nil {
//				return // closed
//			}
//			self.SendNotificationTo(n.Sender, n.Value+1, taskmsg.NoWait)
//		}
//	}, taskmsg.TaskOptions{})
//	echo.Start(context.Background())
//
// # Key Concepts
//
// Identity: every task owns a (kind, id) pair. Kinds group tasks by role; ids
// are assigned from 1 per kind and return to the pool when the task closes.
// Identities address notifications and data without sharing task references.
//
// Notification: a {sender, value} pair in a bounded FIFO queue, the cheap
// signal path. Urgent senders may insert at the front. Interrupt-style code
// paths get a never-blocking variant with a woke flag.
//
// Data channel: a byte ring owned by one task and written by any task under
// a per-destination mutex. The send protocol commits the payload before the
// notification announcing it, so a consumer that drains one notification per
// payload never desynchronizes.
//
// Dispatcher: a task of its own kind that consumes work records from its data
// channel, executes the submitted function synchronously, and routes the
// result bytes plus a completion notification to the submitter.
//
// # Ordering Guarantees
//
// The data-channel mutex is held from ring write through notification
// enqueue. Mutex-grant order therefore equals ring order equals notification
// order: for every destination, the k-th "data available" notification always
// announces the k-th queued payload.
//
// # Example
//
//	import (
//		"context"
//
//		taskmsg "github.com/SamiFAHIM/go-taskmsg"
//	)
//
//	func main() {
//		defer taskmsg.ShutdownGlobalSystem()
//
//		d, _ := taskmsg.NewDispatcher(taskmsg.DefaultDispatcherConfig("worker"))
//		d.Start(context.Background())
//
//		// Fire and forget
//		d.Submit(taskmsg.WorkItem{
//			Fn: func(args any) []byte {
//				println(args.(string))
//				return nil
//			},
//			Args: "hello",
//		}, taskmsg.Forever)
//	}
//
// For more details, see https://github.com/SamiFAHIM/go-taskmsg
package taskmsg

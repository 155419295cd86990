// Package main demonstrates the work dispatch and reply patterns
// Use a dispatcher when work must run off the requesting task but the
// requester still wants the outcome
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	taskmsg "github.com/SamiFAHIM/go-taskmsg"
)

func main() {
	taskmsg.InitGlobalSystem(taskmsg.DefaultSystemConfig("app"))
	defer taskmsg.ShutdownGlobalSystem()

	worker, err := taskmsg.NewDispatcher(taskmsg.DispatcherConfig{Name: "worker"})
	if err != nil {
		panic(err)
	}
	worker.Start(context.Background())

	// Pattern 1: fire and forget
	// No ReplyTo means the result (if any) is discarded
	worker.Submit(taskmsg.WorkItem{
		Fn: func(args any) []byte {
			fmt.Println("background:", args)
			return nil
		},
		Args: "fire and forget",
	}, taskmsg.Forever)

	// Pattern 2: blocking round trip from inside a task
	// SubmitAndCollect enqueues the work, waits for the completion
	// notification, and decodes the routed payload; the 0x0042 value lets
	// the requester tell this completion apart from other notifications
	done := make(chan struct{})
	requester, err := taskmsg.NewTask(1, "requester", func(ctx context.Context, self *taskmsg.Task) {
		defer close(done)
		result, err := taskmsg.SubmitAndCollect(worker, self, func(args any) []byte {
			return []byte(strings.ToUpper(args.(string)))
		}, "hello", 0x0042, taskmsg.Forever, taskmsg.RawBytes)
		if err != nil {
			fmt.Println("collect failed:", err)
			return
		}
		fmt.Printf("result: %s\n", result)
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	requester.Start(context.Background())
	<-done

	// Pattern 3: delayed work
	// The item joins the queue after the delay elapses
	worker.SubmitAfter(taskmsg.WorkItem{
		Fn: func(args any) []byte {
			fmt.Println("delayed work executed")
			return nil
		},
	}, 100*time.Millisecond, taskmsg.Forever)

	time.Sleep(200 * time.Millisecond)
}

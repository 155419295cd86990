// Package main demonstrates payload transfer through a task's data channel
// Payloads live in the receiver's ring until released, so receive and
// release always come in pairs
package main

import (
	"context"
	"fmt"

	taskmsg "github.com/SamiFAHIM/go-taskmsg"
)

const payloadReady = 0x0100

func main() {
	taskmsg.InitGlobalSystem(taskmsg.DefaultSystemConfig("app"))
	defer taskmsg.ShutdownGlobalSystem()

	done := make(chan struct{})

	// The consumer couples the data channel with its notification queue:
	// the notification says "a payload is waiting", the data channel holds
	// the bytes
	consumer, err := taskmsg.NewTask(1, "consumer", func(ctx context.Context, self *taskmsg.Task) {
		defer close(done)
		for i := 0; i < 2; i++ {
			n, err := self.ReceiveNotification(taskmsg.Forever)
			if err != nil {
				return
			}
			if n.Value != payloadReady {
				continue // unrelated notification
			}

			// Zero copy: payload points into the ring
			payload, err := self.ReceiveData(taskmsg.NoWait)
			if err != nil {
				continue
			}
			fmt.Printf("consuming %q\n", payload)

			// Release returns the ring space; payload must not be used
			// after this
			self.ReleaseData(payload)
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	consumer.Start(context.Background())

	// withNotification=true makes the send atomic from the receiver's view:
	// the notification is enqueued only after the payload committed
	producer, err := taskmsg.NewTask(2, "producer", func(ctx context.Context, self *taskmsg.Task) {
		for _, msg := range []string{"first payload", "second payload"} {
			err := self.SendDataTo(consumer.Identity(), []byte(msg), taskmsg.Forever, true, payloadReady)
			if err != nil {
				fmt.Println("send failed:", err)
				return
			}
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	producer.Start(context.Background())

	<-done
	fmt.Println("All payloads consumed and released")
}

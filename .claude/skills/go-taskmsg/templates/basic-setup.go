// Package main demonstrates basic go-taskmsg setup with the global system
package main

import (
	"context"
	"fmt"

	taskmsg "github.com/SamiFAHIM/go-taskmsg"
)

func main() {
	// Step 1: Initialize the global system
	// Every task and dispatcher created through the package-level helpers
	// shares its registry and defaults
	taskmsg.InitGlobalSystem(taskmsg.DefaultSystemConfig("app"))
	defer taskmsg.ShutdownGlobalSystem()

	done := make(chan struct{})

	// Step 2: Create a receiver task
	// The kind byte groups related tasks; ids are assigned per kind
	receiver, err := taskmsg.NewTask(1, "receiver", func(ctx context.Context, self *taskmsg.Task) {
		defer close(done)
		for i := 0; i < 3; i++ {
			n, err := self.ReceiveNotification(taskmsg.Forever)
			if err != nil {
				return // queue closed
			}
			fmt.Printf("got 0x%04x from %s\n", n.Value, n.Sender)
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	receiver.Start(context.Background())

	// Step 3: Send to it from another task
	// Sends carry the sender identity automatically
	sender, err := taskmsg.NewTask(2, "sender", func(ctx context.Context, self *taskmsg.Task) {
		for v := uint16(1); v <= 3; v++ {
			self.SendNotificationTo(receiver.Identity(), v, taskmsg.Forever)
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	sender.Start(context.Background())

	<-done
	fmt.Println("All notifications delivered")
}

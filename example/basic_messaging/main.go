package main

import (
	"context"
	"fmt"

	taskmsg "github.com/SamiFAHIM/go-taskmsg"
)

func main() {
	// 1. Initialize the global messaging system
	taskmsg.InitGlobalSystem(taskmsg.DefaultSystemConfig("basic"))
	defer taskmsg.ShutdownGlobalSystem()

	fmt.Println("=== Basic Messaging Example ===")

	done := make(chan struct{})

	// 2. Create a receiver task
	// Each task owns a bounded notification queue and blocks until a value
	// arrives.
	echo, err := taskmsg.NewTask(1, "echo", func(ctx context.Context, self *taskmsg.Task) {
		defer close(done)
		for i := 0; i < 3; i++ {
			n, err := self.ReceiveNotification(taskmsg.Forever)
			if err != nil {
				return
			}
			fmt.Printf("echo got 0x%04x from %s\n", n.Value, n.Sender)
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	echo.Start(context.Background())

	// 3. Send a sequence of notifications from another task
	greeter, err := taskmsg.NewTask(2, "greeter", func(ctx context.Context, self *taskmsg.Task) {
		for _, v := range []uint16{0x0001, 0x0002, 0x0003} {
			if err := self.SendNotificationTo(echo.Identity(), v, taskmsg.Forever); err != nil {
				fmt.Println("send failed:", err)
				return
			}
		}
	}, taskmsg.TaskOptions{})
	if err != nil {
		panic(err)
	}
	greeter.Start(context.Background())

	<-done
	fmt.Println("=== Example Finished ===")
}

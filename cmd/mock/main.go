package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/fifolink"
	"github.com/hubertat/fifolink/drivers"
)

func main() {
	log.Info("fifolink mock started")
	log.Info("simulated bus with loopback bridge, should work anywhere")

	fl := &fifolink.FifoLink{
		Name:        "mock",
		Sim:         &drivers.SimIO{},
		SimLoopback: true,
		ReadTimeout: fifolink.Duration(100 * time.Millisecond),
	}

	ctx := context.Background()
	err := fl.Init(ctx)
	defer fl.Close()
	if err != nil {
		panic(err)
	}

	for i := 0; i < 3; i++ {
		_, err = fifolink.Printf("tick %d at %s\n", i, time.Now().Format(time.StampMilli))
		if err != nil {
			log.Error("printf failed", "err", err)
		}

		buf := make([]byte, 64)
		n, err := fl.Stream().Read(buf)
		if err != nil {
			log.Error("read failed", "err", err)
			continue
		}
		log.Info("looped back", "data", string(buf[:n]))
	}

	fl.PrintStatus(os.Stdout)
}

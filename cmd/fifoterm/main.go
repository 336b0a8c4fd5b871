package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"

	"github.com/hubertat/fifolink"
	"github.com/hubertat/fifolink/drivers"
	"github.com/hubertat/fifolink/platform"
)

var (
	config  = flag.String("config", "", "path of the configuration file, empty runs on the simulated bus")
	timeout = flag.Duration("timeout", time.Second, "read and write timeout")
)

func loadLink() (*fifolink.FifoLink, error) {
	fl := &fifolink.FifoLink{}
	if len(*config) == 0 {
		fl.Sim = &drivers.SimIO{}
		fl.SimLoopback = true
	} else {
		cBuff, err := os.ReadFile(*config)
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(cBuff, fl); err != nil {
			return nil, err
		}
	}
	fl.ReadTimeout = fifolink.Duration(*timeout)
	fl.WriteTimeout = fifolink.Duration(*timeout)
	return fl, nil
}

func parseBytes(args []string) ([]byte, error) {
	var data []byte
	for _, arg := range args {
		if strings.HasPrefix(arg, "0x") {
			v, err := strconv.ParseUint(arg[2:], 16, 8)
			if err != nil {
				return nil, err
			}
			data = append(data, byte(v))
			continue
		}
		data = append(data, arg...)
	}
	return data, nil
}

func main() {
	flag.Parse()

	fl, err := loadLink()
	if err != nil {
		log.Fatal("failed loading config", "err", err)
	}
	if err = fl.Init(context.Background()); err != nil {
		log.Fatal("init failed", "err", err)
	}
	defer fl.Close()
	// the shell owns the terminal, keep stdout off the fifo
	fifolink.SetStdout(nil)

	stream := fl.Stream()
	shell := ishell.New()
	shell.Printf("fifoterm on %s, controller %s\n", platform.Selected, fl.Controller())

	shell.AddCmd(&ishell.Cmd{
		Name: "poll",
		Help: "sample RXF",
		Func: func(c *ishell.Context) {
			pressed, err := stream.KeyPressed()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("data waiting: %t\n", pressed)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "read [n] bytes, waiting for the first one",
		Func: func(c *ishell.Context) {
			n := 1
			if len(c.Args) > 0 {
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil || n < 1 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
			}
			buf := make([]byte, n)
			got, err := stream.Read(buf)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("% x  %q\n", buf[:got], buf[:got])
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "write",
		Help: "write text and 0xNN bytes",
		Func: func(c *ishell.Context) {
			data, err := parseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			n, err := stream.Write(data)
			c.Printf("wrote %d bytes\n", n)
			if err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "show transfer counters",
		Func: func(c *ishell.Context) {
			var status strings.Builder
			fl.PrintStatus(&status)
			c.Print(status.String())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "dump",
		Help: "dump the wiring and, on the simulated bus, the registers",
		Func: func(c *ishell.Context) {
			c.Println(spew.Sdump(platform.SelectedWiring()))
			if fl.Sim == nil {
				return
			}
			regs := map[string][2]uint8{}
			for port := drivers.PortA; port <= drivers.PortG; port++ {
				ddr, out := fl.Sim.Registers(port)
				regs[port.String()] = [2]uint8{ddr, out}
			}
			c.Println(spew.Sdump(regs))
			if bridge := fl.SimBridge(); bridge != nil {
				c.Printf("bridge pending: %d\n", bridge.Pending())
			}
		},
	})

	shell.Run()
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/fifolink"
)

var (
	Version string
	Build   string

	config      = flag.String("config", "config.json", "path of the configuration file")
	flagInstall = flag.Bool("install", false, "Install service in os")

	flService = servicemaker.ServiceMaker{
		User:               "fifolink",
		UserGroups:         []string{"gpio", "i2c"},
		ServicePath:        "/etc/systemd/system/fifolink.service",
		ServiceDescription: "FifoLink service: bit-banged FT245 fifo bridge with mqtt and http access. github.com/hubertat/fifolink",
		ExecDir:            "/srv/fifolink",
		ExecName:           "fifolink",
	}
)

func main() {
	log.Info("fifolink started", "version", Version, "build", Build)
	flag.Parse()

	if *flagInstall {
		err := flService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Info("service installed!")
			return
		}
	}

	fl := &fifolink.FifoLink{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		configFile.Close()
		if err != nil {
			log.Fatalf("failed reading config file: %v", err)
		}

		err = json.Unmarshal(cBuff, fl)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: %v", *config, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("will init fifo link...")
	err = fl.Init(ctx)
	defer fl.Close()
	if err != nil {
		log.Fatal("init failed", "err", err)
	}

	fl.PrintStatus(os.Stderr)

	err = fl.Run(ctx)
	if err != nil {
		log.Error("fifolink stopped", "err", err)
		return
	}
	log.Info("fifolink stopped")
}

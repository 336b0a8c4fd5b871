// Package fifolink drives an FT245 class FIFO usb bridge over bit-banged
// GPIO lines and exposes it as the process wide character stream.
package fifolink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
	"github.com/hubertat/fifolink/platform"
)

const defaultLinkName = "fifolink"

type FifoLink struct {
	Name     string
	LogLevel string

	EnableStdin bool
	LogToStream bool

	Transmit     TransmitMode
	ReadTimeout  Duration
	WriteTimeout Duration
	PollInterval Duration

	// Driver names the controller to use when more than one is configured:
	// "gpio", "mcpio" or "sim". Empty picks the first configured one.
	Driver string

	Gpio     *drivers.GpIO
	Mcp23017 *drivers.McpIO
	Sim      *drivers.SimIO
	// SimLoopback echoes written bytes back to the host when running on Sim.
	SimLoopback bool

	Mqtt    *MqttBridge
	Console *Console
	Influx  *InfluxReporter

	mu        sync.Mutex
	ctrl      drivers.PinController
	bus       bus.ByteBus
	stream    *Stream
	simBridge *drivers.SimBridge
	logger    *log.Logger
}

func (fl *FifoLink) name() string {
	if len(fl.Name) > 0 {
		return fl.Name
	}
	return defaultLinkName
}

func (fl *FifoLink) configuredControllers() (configured []drivers.PinController) {
	if fl.Gpio != nil {
		configured = append(configured, fl.Gpio)
	}
	if fl.Mcp23017 != nil {
		configured = append(configured, fl.Mcp23017)
	}
	if fl.Sim != nil {
		configured = append(configured, fl.Sim)
	}
	return
}

func (fl *FifoLink) controller() (drivers.PinController, error) {
	configured := fl.configuredControllers()
	if len(configured) == 0 {
		return nil, ErrNoController
	}
	if len(fl.Driver) == 0 {
		return configured[0], nil
	}

	name := strings.ToLower(fl.Driver)
	if _, known := drivers.MapAllPinControllers()[name]; !known {
		return nil, errors.Errorf("unknown pin controller %q", fl.Driver)
	}
	for _, ctrl := range configured {
		if ctrl.String() == name {
			return ctrl, nil
		}
	}
	return nil, errors.Wrapf(ErrNoController, "%s controller selected but not configured", name)
}

// Init sets up the pin controller, parks the bus idle, configures the ready
// lines and registers the stream as stdout. Calling it again repeats the
// same register writes.
func (fl *FifoLink) Init(ctx context.Context) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if len(fl.LogLevel) > 0 {
		level, err := log.ParseLevel(fl.LogLevel)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", fl.LogLevel)
		}
		log.SetLevel(level)
	}
	fl.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "FifoLink 🔌: ",
		Level:  log.GetLevel(),
	})

	ctrl, err := fl.controller()
	if err != nil {
		return err
	}
	if err = ctrl.Setup(ctx); err != nil {
		return errors.Wrapf(err, "failed to setup %s controller", ctrl)
	}
	fl.ctrl = ctrl

	wiring := platform.SelectedWiring()
	if err = wiring.Validate(); err != nil {
		return errors.Wrap(err, "invalid board wiring")
	}

	if fl.Sim != nil && fl.simBridge == nil {
		fl.simBridge = drivers.NewSimBridge(fl.Sim, wiring.BridgeWiring())
	}
	if fl.simBridge != nil {
		fl.simBridge.Loopback = fl.SimLoopback
	}

	b, err := platform.NewBus(ctrl)
	if err != nil {
		return errors.Wrap(err, "failed to create bus")
	}
	if err = b.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset bus")
	}
	fl.bus = b

	for _, pin := range []drivers.Pin{wiring.RXF, wiring.TXE} {
		if err = ctrl.SetDirection(pin, drivers.Input); err != nil {
			return errors.Wrapf(err, "failed to configure ready line %s", pin)
		}
		if err = ctrl.SetPullUp(pin, true); err != nil {
			return errors.Wrapf(err, "failed to configure ready line %s", pin)
		}
	}

	stream := NewStream(b, ctrl, wiring)
	if fl.stream != nil {
		stream.Stats = fl.stream.Stats
	}
	stream.Transmit = fl.Transmit
	stream.ReadTimeout = fl.ReadTimeout.Std()
	stream.WriteTimeout = fl.WriteTimeout.Std()
	stream.PollInterval = fl.PollInterval.Std()
	fl.stream = stream

	SetStdout(stream)
	if fl.EnableStdin {
		SetStdin(stream)
	}
	if fl.LogToStream {
		log.SetOutput(stream)
	}
	if fl.Transmit == TransmitDisabled {
		fl.logger.Warn("transmit disabled, output is discarded")
	}

	fl.logger.Info("fifo link ready", "name", fl.name(), "platform", platform.Selected, "wiring", wiring.Name, "bus", b, "controller", ctrl)
	return nil
}

func (fl *FifoLink) Stream() *Stream {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.stream
}

func (fl *FifoLink) Bus() bus.ByteBus {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.bus
}

// SimBridge returns the simulated bridge chip, or nil unless running on Sim.
func (fl *FifoLink) SimBridge() *drivers.SimBridge {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.simBridge
}

func (fl *FifoLink) Controller() drivers.PinController {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.ctrl
}

// Run serves the configured bridge, console and reporter until ctx ends or
// one of them fails.
func (fl *FifoLink) Run(ctx context.Context) error {
	stream := fl.Stream()
	if stream == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var services []func(context.Context) error
	if fl.Mqtt != nil {
		services = append(services, func(ctx context.Context) error {
			if len(fl.Mqtt.Topic) == 0 {
				fl.Mqtt.Topic = fl.name()
			}
			return errors.Wrap(fl.Mqtt.Run(ctx, stream), "mqtt bridge")
		})
	}
	if fl.Console != nil {
		services = append(services, func(ctx context.Context) error {
			return errors.Wrap(fl.Console.Run(ctx, stream), "console")
		})
	}
	if fl.Influx != nil {
		services = append(services, func(ctx context.Context) error {
			return errors.Wrap(fl.Influx.Run(ctx, stream.Stats), "influx reporter")
		})
	}

	if len(services) == 0 {
		<-ctx.Done()
		return nil
	}

	errs := make(chan error, len(services))
	for _, service := range services {
		go func(run func(context.Context) error) {
			errs <- run(ctx)
		}(service)
	}

	var err error
	for range services {
		serviceErr := <-errs
		if serviceErr != nil && err == nil && ctx.Err() == nil {
			err = serviceErr
			fl.logger.Error("service stopped", "err", err)
			cancel()
		}
	}
	return err
}

// Close restores the default stdio and closes the pin controller.
func (fl *FifoLink) Close() (err error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	SetStdout(nil)
	SetStdin(nil)
	if fl.LogToStream {
		log.SetOutput(os.Stderr)
	}

	if fl.ctrl != nil {
		err = fl.ctrl.Close()
	}
	fl.stream = nil
	fl.bus = nil
	return
}

func (fl *FifoLink) PrintStatus(writer io.Writer) {
	fl.mu.Lock()
	ctrl, stream := fl.ctrl, fl.stream
	fl.mu.Unlock()

	wiring := platform.SelectedWiring()
	fmt.Fprintln(writer)
	fmt.Fprintf(writer, "=== %s ===\n", fl.name())
	fmt.Fprintf(writer, "| platform: %s (%s)\n", platform.Selected, wiring.Name)
	if ctrl != nil {
		fmt.Fprintf(writer, "| controller: %s (ready: %t)\n", ctrl, ctrl.IsReady())
	}
	fmt.Fprintf(writer, "| ready lines: RXF %s, TXE %s\n", wiring.RXF, wiring.TXE)
	if stream != nil {
		st := stream.Stats.Snapshot()
		fmt.Fprintf(writer, "| rx: %d bytes (%d timeouts)\n", st.RxBytes, st.RxTimeouts)
		fmt.Fprintf(writer, "| tx: %d bytes (%d timeouts, %d discarded)\n", st.TxBytes, st.TxTimeouts, st.TxDiscarded)
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}

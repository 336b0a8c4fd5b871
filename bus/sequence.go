package bus

import (
	"github.com/hubertat/fifolink/drivers"
)

// sequence runs controller operations until the first error, which sticks.
type sequence struct {
	ctrl drivers.PinController
	err  error
}

func (s *sequence) level(pin drivers.Pin, level drivers.Level) {
	if s.err == nil {
		s.err = s.ctrl.SetLevel(pin, level)
	}
}

func (s *sequence) dir(pin drivers.Pin, dir drivers.Direction) {
	if s.err == nil {
		s.err = s.ctrl.SetDirection(pin, dir)
	}
}

// output drives the level first, then enables the driver.
func (s *sequence) output(pin drivers.Pin, level drivers.Level) {
	s.level(pin, level)
	s.dir(pin, drivers.Output)
}

func (s *sequence) get(pin drivers.Pin) drivers.Level {
	if s.err != nil {
		return drivers.Low
	}
	var level drivers.Level
	level, s.err = s.ctrl.GetLevel(pin)
	return level
}

func (s *sequence) portDir(port drivers.Port, dir drivers.Direction) {
	if s.err == nil {
		s.err = drivers.SetPortDirection(s.ctrl, port, dir)
	}
}

func (s *sequence) writePort(port drivers.Port, value uint8) {
	if s.err == nil {
		s.err = drivers.WritePort(s.ctrl, port, value)
	}
}

func (s *sequence) readPort(port drivers.Port) uint8 {
	if s.err != nil {
		return 0
	}
	var value uint8
	value, s.err = drivers.ReadPort(s.ctrl, port)
	return value
}

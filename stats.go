package fifolink

import "sync/atomic"

// Stats counts stream traffic. The zero value is ready to use.
type Stats struct {
	rxBytes     atomic.Uint64
	txBytes     atomic.Uint64
	rxTimeouts  atomic.Uint64
	txTimeouts  atomic.Uint64
	txDiscarded atomic.Uint64
}

type StatsSnapshot struct {
	RxBytes     uint64 `json:"rx_bytes"`
	TxBytes     uint64 `json:"tx_bytes"`
	RxTimeouts  uint64 `json:"rx_timeouts"`
	TxTimeouts  uint64 `json:"tx_timeouts"`
	TxDiscarded uint64 `json:"tx_discarded"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RxBytes:     s.rxBytes.Load(),
		TxBytes:     s.txBytes.Load(),
		RxTimeouts:  s.rxTimeouts.Load(),
		TxTimeouts:  s.txTimeouts.Load(),
		TxDiscarded: s.txDiscarded.Load(),
	}
}

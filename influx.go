package fifolink

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultInfluxMeasurement = "fifolink"
const defaultReportInterval = time.Minute

// InfluxReporter periodically writes the stream counters to InfluxDB.
type InfluxReporter struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string
	Interval     Duration

	Tags map[string]string
}

func (ir *InfluxReporter) measurement() string {
	if len(ir.Measurement) > 0 {
		return ir.Measurement
	}
	return defaultInfluxMeasurement
}

func (ir *InfluxReporter) point(st StatsSnapshot, ts time.Time) *write.Point {
	return influxdb2.NewPoint(ir.measurement(), ir.Tags, map[string]interface{}{
		"rx_bytes":     int64(st.RxBytes),
		"tx_bytes":     int64(st.TxBytes),
		"rx_timeouts":  int64(st.RxTimeouts),
		"tx_timeouts":  int64(st.TxTimeouts),
		"tx_discarded": int64(st.TxDiscarded),
	}, ts)
}

func (ir *InfluxReporter) Run(ctx context.Context, stats *Stats) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "InfluxReporter 📈: ",
		Level:  log.GetLevel(),
	})

	client := influxdb2.NewClient(ir.Host, ir.Token)
	defer client.Close()
	writeApi := client.WriteAPIBlocking(ir.Organization, ir.Bucket)

	interval := ir.Interval.Std()
	if interval <= 0 {
		interval = defaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			err := writeApi.WritePoint(ctx, ir.point(stats.Snapshot(), now))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("failed to write stats", "host", ir.Host, "err", errors.Wrap(err, "influx write"))
			}
		}
	}
}

package fifolink

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Duration reads time.Duration values from config strings like "250ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", v)
		}
		*d = Duration(parsed)
	default:
		return errors.Errorf("invalid duration: %s", b)
	}
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

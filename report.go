package devfs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stats is a snapshot of device usage
type Stats struct {
	Opens    uint32
	Writes   uint32
	Reads    uint32
	OpenTime time.Duration // summed over closed sessions
}

// String renders the four-line statistics report
func (s Stats) String() string {
	return fmt.Sprintf("Open count: %d\nWrite count: %d\nRead count: %d\nOpen time: %d milliseconds\n",
		s.Opens, s.Writes, s.Reads, s.OpenTime.Milliseconds())
}

type statsJSON struct {
	Opens      uint32 `json:"open_count"`
	Writes     uint32 `json:"write_count"`
	Reads      uint32 `json:"read_count"`
	OpenTimeMS int64  `json:"open_time_ms"`
}

// MarshalJSON encodes the open time in milliseconds, like the text report
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Opens:      s.Opens,
		Writes:     s.Writes,
		Reads:      s.Reads,
		OpenTimeMS: s.OpenTime.Milliseconds(),
	})
}

// JSON returns the snapshot as an indented JSON string
func (s Stats) JSON() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

package series

import (
	"encoding/json"
	"fmt"
)

// --- Wire Structures for Distribution Points ---

// Point is a single distribution sample: a Unix timestamp in seconds
// paired with the values observed at that time.
//
// On the wire a point is a two-element tuple, not an object:
//
//	[1683067045, [42.5]]
type Point struct {
	Ts     int64
	Values []float64
}

// MarshalJSON encodes the point as the [timestamp, values] tuple the
// distribution-points intake expects.
func (p Point) MarshalJSON() ([]byte, error) {
	values := p.Values
	if values == nil {
		values = []float64{}
	}
	return json.Marshal([2]any{p.Ts, values})
}

// UnmarshalJSON decodes a [timestamp, values] tuple.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decoding point: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Ts); err != nil {
		return fmt.Errorf("decoding point timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Values); err != nil {
		return fmt.Errorf("decoding point values: %w", err)
	}
	return nil
}

// Series is one named metric and its points, ready for submission.
type Series struct {
	Metric string   `json:"metric"`
	Points []Point  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

// Empty reports whether the series carries no points and can be
// skipped during submission.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

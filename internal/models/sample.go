package models

import "time"

// Sample is one reading produced by a sensor source. It is never mutated after
// the producer pushes it.
type Sample struct {
	Sensor    string
	Value     int64
	Frame     *Frame // set by camera sources only
	OK        bool   // read success flag reported by the source
	Timestamp time.Time
}

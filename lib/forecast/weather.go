package forecast

import (
	"fmt"
)

const (
	MinTemp float32 = -25.0
	MaxTemp float32 = 50.0
)

// Condition is the weather condition code sent on the wire as a single byte
type Condition uint8

const (
	Clear Condition = iota
	Cloud
	Mist
	Rain
	Showers
	Snow
	NumConditions
)

var conditionNames = [NumConditions]string{
	Clear:   "Despejado",
	Cloud:   "Nublado",
	Mist:    "Neblina",
	Rain:    "Lluvia",
	Showers: "Chubascos",
	Snow:    "Nieve",
}

// Valid reports whether c is a known condition
func (c Condition) Valid() bool {
	return c < NumConditions
}

func (c Condition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Condition(%d)", uint8(c))
	}
	return conditionNames[c]
}

// Weather is the forecast for one day
type Weather struct {
	Date string // YYYY-MM-DD
	Cond Condition
	Temp float32
}

func (w Weather) String() string {
	return fmt.Sprintf("{%s, %s, %.1f}", w.Date, w.Cond, w.Temp)
}

package forecast

import (
	"errors"
	"fmt"
	"strings"
)

// Sign is a zodiac sign, its numeric value is used on the wire
type Sign uint8

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
	NumSigns
)

var ErrInvalidSign = errors.New("invalid sign")

var signNames = [NumSigns]string{
	Aries:       "aries",
	Taurus:      "tauro",
	Gemini:      "geminis",
	Cancer:      "cancer",
	Leo:         "leo",
	Virgo:       "virgo",
	Libra:       "libra",
	Scorpio:     "escorpio",
	Sagittarius: "sagitario",
	Capricorn:   "capricornio",
	Aquarius:    "acuario",
	Pisces:      "piscis",
}

// signRanges holds the MM-DD period of every sign
var signRanges = [NumSigns][2]string{
	Aries:       {"03-21", "04-19"},
	Taurus:      {"04-20", "05-20"},
	Gemini:      {"05-21", "06-21"},
	Cancer:      {"06-22", "07-22"},
	Leo:         {"07-23", "08-22"},
	Virgo:       {"08-23", "09-22"},
	Libra:       {"09-23", "10-22"},
	Scorpio:     {"10-23", "11-22"},
	Sagittarius: {"11-23", "12-21"},
	Capricorn:   {"12-22", "01-19"},
	Aquarius:    {"01-20", "02-18"},
	Pisces:      {"02-19", "03-20"},
}

// Valid reports whether s is a known sign
func (s Sign) Valid() bool {
	return s < NumSigns
}

func (s Sign) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Sign(%d)", uint8(s))
	}
	return signNames[s]
}

// DateRange returns the first and last day (MM-DD) of the sign
func (s Sign) DateRange() [2]string {
	if !s.Valid() {
		return [2]string{}
	}
	return signRanges[s]
}

// ParseSign matches name case-insensitively as a prefix of the sign names, the first
// match in zodiac order wins ("c" is cancer, "cap" is capricornio)
func ParseSign(name string) (Sign, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidSign)
	}
	for i, s := range signNames {
		if strings.HasPrefix(s, name) {
			return Sign(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSign, name)
}

// Horoscope is the prediction for one sign on one day
type Horoscope struct {
	Sign      Sign
	Compat    Sign
	DateRange [2]string
	Mood      string
}

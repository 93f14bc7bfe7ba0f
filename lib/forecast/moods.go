package forecast

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// MaxMoodLen is the maximum length of a mood line in bytes
const MaxMoodLen = 255

// Moods holds one line of text per sign
type Moods [NumSigns]string

// DefaultMoods is used when no moods file is configured
var DefaultMoods = Moods{
	Aries:       "Hoy la energía te sobra, úsala para terminar lo pendiente.",
	Taurus:      "La paciencia será tu mejor aliada en los asuntos de dinero.",
	Gemini:      "Una conversación inesperada te abrirá una puerta nueva.",
	Cancer:      "Dedica tiempo a tu hogar, ahí encontrarás la calma.",
	Leo:         "Tu carisma brilla, pero escucha antes de opinar.",
	Virgo:       "El orden en los detalles te traerá una buena noticia.",
	Libra:       "Busca el equilibrio entre lo que das y lo que recibes.",
	Scorpio:     "Confía en tu intuición ante una decisión importante.",
	Sagittarius: "Un viaje corto o un cambio de rutina te hará bien.",
	Capricorn:   "El esfuerzo constante empieza a dar resultados.",
	Aquarius:    "Una idea original llamará la atención de los demás.",
	Pisces:      "Tu sensibilidad te ayudará a comprender a alguien cercano.",
}

// ReadMoods reads one mood per line in zodiac order. Lines after the last sign are
// ignored, missing lines keep the default mood and long lines are truncated.
func ReadMoods(r io.Reader) (Moods, error) {
	moods := DefaultMoods
	scanner := bufio.NewScanner(r)

	for i := 0; i < int(NumSigns) && scanner.Scan(); i++ {
		moods[i] = truncate(strings.TrimRight(scanner.Text(), "\r"), MaxMoodLen)
	}
	if err := scanner.Err(); err != nil {
		return DefaultMoods, fmt.Errorf("failed to read moods: %w", err)
	}

	return moods, nil
}

// LoadMoods reads the moods from a file, an empty path returns DefaultMoods
func LoadMoods(path string) (Moods, error) {
	if path == "" {
		return DefaultMoods, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return DefaultMoods, fmt.Errorf("failed to open moods file: %w", err)
	}
	defer f.Close()

	return ReadMoods(f)
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package forecast

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Generator produces random forecasts. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	moods Moods
	now   func() time.Time
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithSeed makes the generator deterministic
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithNow replaces time.Now as the reference for day offsets
func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator using the given moods
func NewGenerator(moods Moods, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		moods: moods,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the generator's current time in the local time zone
func (g *Generator) Now() time.Time {
	return g.now().In(time.Local)
}

// Weather generates the forecast for today + day
func (g *Generator) Weather(day int) Weather {
	date := g.Now().AddDate(0, 0, day)

	g.mu.Lock()
	defer g.mu.Unlock()

	return Weather{
		Date: date.Format(DateLayout),
		Cond: Condition(g.rng.IntN(int(NumConditions))),
		Temp: MinTemp + g.rng.Float32()*(MaxTemp-MinTemp),
	}
}

// Horoscope generates a prediction for sign with a random compatible sign
func (g *Generator) Horoscope(sign Sign) Horoscope {
	g.mu.Lock()
	compat := Sign(g.rng.IntN(int(NumSigns)))
	g.mu.Unlock()

	return Horoscope{
		Sign:      sign,
		Compat:    compat,
		DateRange: sign.DateRange(),
		Mood:      g.moods[sign%NumSigns],
	}
}

// Moods returns the moods the generator was created with
func (g *Generator) Moods() Moods {
	return g.moods
}

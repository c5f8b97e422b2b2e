package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Clock is the time source of the lifecycle manager.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NumberGenerator produces booking numbers.
type NumberGenerator interface {
	Generate(now time.Time) (string, error)
}

// RandomNumberGenerator builds YYYYMMDD + 4 random digits, the date taken in loc.
type RandomNumberGenerator struct {
	loc *time.Location
}

// NewRandomNumberGenerator creates a generator for the given business time zone.
func NewRandomNumberGenerator(loc *time.Location) *RandomNumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &RandomNumberGenerator{loc: loc}
}

var numberSpace = big.NewInt(10000)

// Generate returns a fresh booking number for the creation date of now.
func (g *RandomNumberGenerator) Generate(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, numberSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate booking number: %w", err)
	}
	return fmt.Sprintf("%s%04d", now.In(g.loc).Format("20060102"), n.Int64()), nil
}

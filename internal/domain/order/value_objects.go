package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

type Money struct {
	cents int64
}

func NewMoney(cents int64) Money {
	return Money{cents: cents}
}

func NewMoneyFromCents(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) IsNegative() bool {
	return m.cents < 0
}

func (m Money) String() string {
	sign := ""
	c := m.cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Order codes avoid characters that are easy to confuse when read aloud
// over the phone (0/O, 1/I, 2/Z, 4/A, 5/S, 6/G).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ3789"

const codeLength = 5

func NewCode() string {
	return randomString(codeAlphabet, codeLength)
}

const secretAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewPositionSecret returns the per-position token embedded in
// self-service links.
func NewPositionSecret() string {
	return randomString(secretAlphabet, 32)
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

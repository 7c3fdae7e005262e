// Package wordpairs holds the catalogue of secret word pairs a game is dealt
// from.
package wordpairs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lox/wordwolf/internal/randutil"
)

//go:embed pairs.toml
var builtin string

// Pair is two related words
type Pair struct {
	Words    [2]string `toml:"words"`
	Category string    `toml:"category"`
}

func (p Pair) String() string {
	return p.Words[0] + "/" + p.Words[1]
}

// Catalogue is a list of pairs to draw from
type Catalogue struct {
	Pairs []Pair `toml:"pair"`
}

// Builtin returns the embedded catalogue
func Builtin() *Catalogue {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("embedded word pairs are invalid: %v", err))
	}
	return c
}

// Load reads a catalogue from a TOML file
func Load(filename string) (*Catalogue, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read word pairs: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// Parse decodes and validates a TOML catalogue
func Parse(data string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode word pairs: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every pair has two distinct, non-empty words
func (c *Catalogue) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("word pair catalogue is empty")
	}
	for i, p := range c.Pairs {
		a, b := strings.TrimSpace(p.Words[0]), strings.TrimSpace(p.Words[1])
		if a == "" || b == "" {
			return fmt.Errorf("pair %d: words must not be empty", i)
		}
		if strings.EqualFold(a, b) {
			return fmt.Errorf("pair %d: words must differ, got %q twice", i, a)
		}
	}
	return nil
}

// Random draws a pair uniformly
func (c *Catalogue) Random(src randutil.Source) Pair {
	return randutil.Pick(src, c.Pairs)
}

// Categories returns the distinct categories in catalogue order
func (c *Catalogue) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range c.Pairs {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

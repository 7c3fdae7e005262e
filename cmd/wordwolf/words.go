package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lox/wordwolf/cmd/wordwolf/shared"
	"github.com/lox/wordwolf/internal/wordpairs"
)

type WordsCmd struct {
	File     string `kong:"type='existingfile',help='Catalogue to list instead of the configured one'"`
	Category string `kong:"help='Only list pairs in this category'"`
}

func (c *WordsCmd) Run(g *Globals) error {
	cat, err := c.catalogue(g)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPAIR")
	for _, p := range cat.Pairs {
		if c.Category != "" && p.Category != c.Category {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", p.Category, p)
	}
	return w.Flush()
}

func (c *WordsCmd) catalogue(g *Globals) (*wordpairs.Catalogue, error) {
	if c.File != "" {
		return wordpairs.Load(c.File)
	}
	cfg, err := shared.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if cfg.Game.WordPairs != "" {
		return wordpairs.Load(cfg.Game.WordPairs)
	}
	return wordpairs.Builtin(), nil
}

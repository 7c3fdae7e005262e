package brain

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lox/wordwolf/internal/game"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

var (
	// ErrMalformedResponse means the reply was not JSON at all
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSchemaMismatch means the reply was JSON with missing or mistyped fields
	ErrSchemaMismatch = errors.New("response does not match schema")
	// ErrUnknownPlayerReference means a vote named someone who is not playing
	ErrUnknownPlayerReference = errors.New("unknown player reference")
	// ErrTransportFailure means the model could not be reached or refused the request
	ErrTransportFailure = errors.New("model request failed")
)

// ParseError carries the raw reply that failed to parse. Kind is one of the
// sentinel errors above and is matched by errors.Is.
type ParseError struct {
	Kind error
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ChatDecision is what a bot wants to do on its chat turn. Only Say is ever
// shown to other players.
type ChatDecision struct {
	Thoughts   string `json:"thoughts"`
	Say        string `json:"say"`
	LikelyWolf string `json:"likelyWolf,omitempty"`
}

// VoteDecision is the raw vote a bot returned
type VoteDecision struct {
	Thoughts        string `json:"thoughts"`
	VotedPlayerName string `json:"votedPlayerName"`
}

// Parser validates model replies against the embedded response schemas
type Parser struct {
	chat *jsonschema.Schema
	vote *jsonschema.Schema
}

// NewParser compiles the response schemas
func NewParser() (*Parser, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	compile := func(filename string) (*jsonschema.Schema, error) {
		data, err := schemaFiles.ReadFile("schemas/" + filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", filename, err)
		}
		url := "https://wordwolf.dev/schemas/" + filename
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", filename, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", filename, err)
		}
		return schema, nil
	}

	chat, err := compile("chat.json")
	if err != nil {
		return nil, err
	}
	vote, err := compile("vote.json")
	if err != nil {
		return nil, err
	}
	return &Parser{chat: chat, vote: vote}, nil
}

var (
	defaultParser     *Parser
	defaultParserOnce sync.Once
)

// DefaultParser returns a shared parser. The schemas are embedded, so a
// compile failure is a build defect and panics.
func DefaultParser() *Parser {
	defaultParserOnce.Do(func() {
		p, err := NewParser()
		if err != nil {
			panic(err)
		}
		defaultParser = p
	})
	return defaultParser
}

// ParseChat parses a chat reply with the default parser
func ParseChat(raw string) (ChatDecision, error) {
	return DefaultParser().ParseChat(raw)
}

// ParseVote parses a vote reply with the default parser
func ParseVote(raw string, players []game.Player) (VoteDecision, game.Player, error) {
	return DefaultParser().ParseVote(raw, players)
}

// ParseChat turns a raw reply into a ChatDecision
func (p *Parser) ParseChat(raw string) (ChatDecision, error) {
	var d struct {
		ChatDecision
		LikelyWerewolf string `json:"likelyWerewolf"`
	}
	if err := p.decode(p.chat, raw, &d); err != nil {
		return ChatDecision{}, err
	}
	if d.LikelyWolf == "" {
		d.LikelyWolf = d.LikelyWerewolf
	}
	return d.ChatDecision, nil
}

// ParseVote turns a raw reply into a VoteDecision and resolves the target
// against players by exact name.
func (p *Parser) ParseVote(raw string, players []game.Player) (VoteDecision, game.Player, error) {
	var d VoteDecision
	if err := p.decode(p.vote, raw, &d); err != nil {
		return VoteDecision{}, nil, err
	}

	for _, player := range players {
		if player.PlayerName() == d.VotedPlayerName {
			return d, player, nil
		}
	}
	return d, nil, &ParseError{
		Kind: ErrUnknownPlayerReference,
		Raw:  raw,
		Err:  fmt.Errorf("no player named %q", d.VotedPlayerName),
	}
}

func (p *Parser) decode(schema *jsonschema.Schema, raw string, out any) error {
	body := stripFence(raw)

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return &ParseError{Kind: ErrMalformedResponse, Raw: raw, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &ParseError{Kind: ErrSchemaMismatch, Raw: raw, Err: err}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ParseError{Kind: ErrSchemaMismatch, Raw: raw, Err: err}
	}
	return nil
}

// stripFence removes a surrounding Markdown code fence, which models like
// to add around JSON even when asked not to.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s[3:], "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(s)
}

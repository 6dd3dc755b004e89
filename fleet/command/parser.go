// Package command parses rover command programs such as "F3 R F2 L B".
//
// A program is a sequence of single-letter commands (F, B, L, R, any case),
// each optionally followed by a repeat count. Whitespace, commas and
// semicolons separate nothing and are ignored, so "FFRB" and "F2, R, B" are
// both valid. Programs expand to at most MaxProgramSteps instructions.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// MaxProgramSteps bounds the expanded length of a program
const MaxProgramSteps = 100

var (
	ErrEmptyProgram   = fmt.Errorf("%w: empty program", rover.ErrInvalidCommand)
	ErrProgramTooLong = fmt.Errorf("%w: program expands to more than %d steps", rover.ErrInvalidCommand, MaxProgramSteps)
)

// Program is the parsed form of a command string
type Program struct {
	Steps []*Step `parser:"@@*"`
}

// Step is one command letter with an optional repeat count
type Step struct {
	Pos lexer.Position

	Letter string `parser:"@Command"`
	Count  *int   `parser:"@Int?"`
}

var programLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Command", Pattern: `[FfBbLlRr]`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Whitespace", Pattern: `[\s,;]+`},
})

var parser = participle.MustBuild[Program](
	participle.Lexer(programLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a program without expanding it
func Parse(input string) (*Program, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyProgram
	}

	program, err := parser.ParseString("commands", input)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %s at column %d", rover.ErrInvalidCommand, perr.Message(), perr.Position().Column)
		}
		return nil, fmt.Errorf("%w: %v", rover.ErrInvalidCommand, err)
	}
	return program, nil
}

// Expand parses input and unrolls repeat counts into single instructions
func Expand(input string) ([]Instruction, error) {
	program, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return program.Expand()
}

// Expand unrolls repeat counts into single instructions
func (p *Program) Expand() ([]Instruction, error) {
	var out []Instruction

	for _, step := range p.Steps {
		count := 1
		if step.Count != nil {
			count = *step.Count
		}
		if count < 1 {
			return nil, fmt.Errorf("%w: repeat count for %s at column %d must be positive", rover.ErrInvalidCommand, step.Letter, step.Pos.Column)
		}
		if count > MaxProgramSteps-len(out) {
			return nil, ErrProgramTooLong
		}

		inst, err := newInstruction(step.Letter)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			out = append(out, inst)
		}
	}

	if len(out) == 0 {
		return nil, ErrEmptyProgram
	}
	return out, nil
}

// String renders the program in canonical form, e.g. "F3 R F2"
func (p *Program) String() string {
	parts := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		s := strings.ToUpper(step.Letter)
		if step.Count != nil && *step.Count != 1 {
			s += fmt.Sprint(*step.Count)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

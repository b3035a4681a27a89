// Package input parses console command lines.
package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomz197/ciphertower/internal/object"
)

var (
	// ErrUnknownCommand is returned for a verb no command answers to.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a known command has bad arguments.
	ErrUsage = errors.New("usage")
)

// Op identifies a console command.
type Op int

const (
	OpNone Op = iota // Empty line
	OpHelp
	OpQuit
	OpTutorial
	OpStart
	OpBoard
	OpStatus
	OpWaves
	OpShop
	OpStartWave
	OpDecrypt
	OpIntel
	OpPlace
	OpUpgrade
	OpSell
	OpInspect
	OpConnect
	OpDisconnect
)

// Command is one parsed console line. Only the fields used by Op are set.
type Command struct {
	Op    Op
	Wave  int
	Tower int
	Cell  object.Cell
	Kind  object.TowerKind
}

// verb describes how a command word parses.
type verb struct {
	op    Op
	usage string
	help  string
	parse func(cmd *Command, args []string) error
}

var commands = []verb{
	{OpHelp, "help", "show this list", nil},
	{OpTutorial, "tutorial", "show or close the tutorial", nil},
	{OpStart, "start", "start a new game (also: play again)", nil},
	{OpConnect, "connect", "connect your identity", nil},
	{OpDisconnect, "disconnect", "disconnect your identity", nil},
	{OpBoard, "board", "draw the board", nil},
	{OpStatus, "status", "show gold, lives and wave", nil},
	{OpWaves, "waves", "list waves with hints and ciphertext", nil},
	{OpShop, "shop", "list tower types", nil},
	{OpStartWave, "wave <n>", "start wave n", parseWave},
	{OpDecrypt, "decrypt <n>", "sign and decrypt wave n's path and composition", parseWave},
	{OpIntel, "intel [n]", "show decrypted intel (default: selected wave)", parseOptionalWave},
	{OpPlace, "place <x> <y> [type]", "build a tower (default type basic)", parsePlace},
	{OpInspect, "tower <id>", "show a tower with upgrade and sell prices", parseTower},
	{OpUpgrade, "upgrade <id>", "upgrade a tower", parseTower},
	{OpSell, "sell <id>", "sell a tower", parseTower},
	{OpQuit, "quit", "leave", nil},
}

// aliases maps every accepted verb, including short forms, to its command.
var aliases = func() map[string]*verb {
	short := map[Op][]string{
		OpHelp:      {"h", "?"},
		OpQuit:      {"q", "exit"},
		OpTutorial:  {"t"},
		OpStart:     {"s", "play"},
		OpBoard:     {"b"},
		OpWaves:     {"w"},
		OpStartWave: {"go"},
		OpDecrypt:   {"d"},
		OpIntel:     {"i"},
		OpPlace:     {"p", "build"},
		OpUpgrade:   {"u"},
		OpSell:      {"x"},
		OpInspect:   {"inspect"},
	}
	m := make(map[string]*verb)
	for i := range commands {
		c := &commands[i]
		m[strings.Fields(c.usage)[0]] = c
		for _, a := range short[c.op] {
			m[a] = c
		}
	}
	return m
}()

// Parse converts a console line into a Command. Verbs are case-insensitive.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Op: OpNone}, nil
	}
	c, ok := aliases[fields[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w %q, type help", ErrUnknownCommand, fields[0])
	}
	cmd := Command{Op: c.op}
	args := fields[1:]
	if c.parse == nil {
		if len(args) > 0 {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, c.usage)
		}
		return cmd, nil
	}
	if err := c.parse(&cmd, args); err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrUsage, c.usage)
	}
	return cmd, nil
}

// Help returns the command reference, one command per line.
func Help() string {
	width := 0
	for _, c := range commands {
		if len(c.usage) > width {
			width = len(c.usage)
		}
	}
	var b strings.Builder
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, c.usage, c.help)
	}
	return b.String()
}

func parseWave(cmd *Command, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	n, err := positive(args[0])
	cmd.Wave = n
	return err
}

func parseOptionalWave(cmd *Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return parseWave(cmd, args)
}

func parseTower(cmd *Command, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := positive(args[0])
	cmd.Tower = id
	return err
}

func parsePlace(cmd *Command, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	cmd.Cell = object.Cell{X: x, Y: y}
	cmd.Kind = object.TowerBasic
	if len(args) == 3 {
		kind, err := object.ParseTowerKind(args[2])
		if err != nil {
			return err
		}
		cmd.Kind = kind
	}
	return nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

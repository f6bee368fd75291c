package main

import (
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	commandStart commandKind = iota
	commandCheck
	commandCall
	commandBet
	commandFold
	commandState
	commandQuit
)

type command struct {
	kind   commandKind
	amount int
}

// parseCommand reads one line typed at the prompt.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	kinds := map[string]commandKind{
		"start": commandStart,
		"check": commandCheck,
		"call":  commandCall,
		"bet":   commandBet,
		"raise": commandBet,
		"fold":  commandFold,
		"state": commandState,
		"quit":  commandQuit,
		"exit":  commandQuit,
	}
	kind, ok := kinds[fields[0]]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	if kind != commandBet {
		if len(fields) != 1 {
			return command{}, fmt.Errorf("%s takes no argument", fields[0])
		}
		return command{kind: kind}, nil
	}
	if len(fields) != 2 {
		return command{}, fmt.Errorf("usage: %s AMOUNT", fields[0])
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil || amount < 0 {
		return command{}, fmt.Errorf("invalid amount %q", fields[1])
	}
	return command{kind: commandBet, amount: amount}, nil
}

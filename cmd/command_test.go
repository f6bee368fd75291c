package main

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		expected command
	}{
		{"start", command{kind: commandStart}},
		{" Check ", command{kind: commandCheck}},
		{"call", command{kind: commandCall}},
		{"bet 10", command{kind: commandBet, amount: 10}},
		{"raise 0", command{kind: commandBet, amount: 0}},
		{"fold", command{kind: commandFold}},
		{"state", command{kind: commandState}},
		{"exit", command{kind: commandQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			actual, err := parseCommand(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if actual != tt.expected {
				t.Fatalf("expected %+v, actual %+v", tt.expected, actual)
			}
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"", "shuffle", "bet", "bet x", "bet -3", "fold now", "bet 1 2"} {
		if _, err := parseCommand(line); err == nil {
			t.Fatalf("%q must be rejected", line)
		}
	}
}

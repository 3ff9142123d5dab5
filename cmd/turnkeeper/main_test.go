package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"turnkeeper/internal/app"
	"turnkeeper/internal/config"
	"turnkeeper/internal/relay"
)

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("TURNKEEPER_TURN_TIMEOUT", "45s")
	t.Setenv("TURNKEEPER_USER_ID", "player-a")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if e.LogLevel != "info" || e.SubjectPrefix != "turnkeeper" || e.RelayIssuer != "turnkeeper" {
		t.Fatalf("defaults = %+v", e)
	}
	if e.TurnTimeout != 45*time.Second {
		t.Fatalf("TurnTimeout = %v, want 45s", e.TurnTimeout)
	}
	if e.UserID != "player-a" {
		t.Fatalf("UserID = %q, want player-a", e.UserID)
	}
}

func TestParseEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("TURNKEEPER_TURN_TIMEOUT", "soon")
	if _, err := ParseEnv(); err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("ParseEnv() error = %v, want parse env error", err)
	}
}

func TestTurnTimeoutFallsBackToConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TurnTimeoutSeconds = 20
	c := &cli{cfg: cfg}
	if got := c.turnTimeout(); got != 20*time.Second {
		t.Fatalf("turnTimeout() = %v, want 20s", got)
	}
	c.env.TurnTimeout = 5 * time.Second
	if got := c.turnTimeout(); got != 5*time.Second {
		t.Fatalf("turnTimeout() = %v, want 5s", got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		op       string
		decision string
		ok       bool
		err      error
	}{
		{line: "end", op: app.OpAdvanceTurn, decision: "end", ok: true},
		{line: "  Delay ", op: app.OpAdvanceTurn, decision: "delay", ok: true},
		{line: "cancel", op: app.OpAdvanceTurn, decision: "cancel", ok: true},
		{line: "begin", op: app.OpBeginMainLoop, ok: true},
		{line: "recompute", op: app.OpRecomputeOrder, ok: true},
		{line: "", ok: false},
		{line: "quit", err: errQuit},
		{line: "fireball", err: app.ErrUnknownOperation},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, ok, err := parseCommand(tt.line)
			if !errors.Is(err, tt.err) {
				t.Fatalf("parseCommand(%q) error = %v, want %v", tt.line, err, tt.err)
			}
			if ok != tt.ok || cmd.op != tt.op {
				t.Fatalf("parseCommand(%q) = %q (%t), want %q (%t)", tt.line, cmd.op, ok, tt.op, tt.ok)
			}
			if tt.decision != "" && cmd.args["decision"] != tt.decision {
				t.Fatalf("decision = %v, want %s", cmd.args["decision"], tt.decision)
			}
		})
	}
}

func TestPrintProjection(t *testing.T) {
	p := relay.NewProjection("s1")
	p.Round = 2
	p.Phase = "main"
	p.ActingName = "Alpha"
	p.Order = []app.OrderEntry{{DisplayName: "Alpha", Initiative: 12}, {DisplayName: "Beta", Initiative: 8}}
	p.TurnIndex = 0

	var buf bytes.Buffer
	printProjection(&buf, p)
	out := buf.String()
	if !strings.Contains(out, "round 2 main acting=Alpha") || !strings.Contains(out, "> Alpha") {
		t.Fatalf("output = %q", out)
	}
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duel.yaml")
	data := `
session: duel
participants:
  - id: a
    entity: {role: ally, base_initiative: 12, vitality: 10}
  - id: b
    entity: {role: ally, base_initiative: 8, vitality: 10}
steps:
  - op: startCombat
  - op: beginMainLoop
    expect: {acting: a}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	t.Setenv("TURNKEEPER_CONFIG", filepath.Join(dir, "missing.json"))

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"replay", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("replay: %v\n%s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "actor -> a") {
		t.Fatalf("replay output = %q", out.String())
	}
}

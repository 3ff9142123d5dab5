package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologWritesFormattedMessage(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.WithField("session", "s1").Info("Relay: intent %s accepted", "abc")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if line["message"] != "Relay: intent abc accepted" {
		t.Fatalf("message = %v", line["message"])
	}
	if line["session"] != "s1" {
		t.Fatalf("session = %v, want s1", line["session"])
	}
}

func TestZerologFieldsAreCopied(t *testing.T) {
	base := Nop()
	child := base.WithFields(map[string]interface{}{"a": 1})
	grandchild := child.WithField("b", 2)

	if len(base.Fields()) != 0 {
		t.Fatalf("base fields = %v, want none", base.Fields())
	}
	if got := grandchild.Fields(); len(got) != 2 || got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("grandchild fields = %v", got)
	}
	child.Fields()["c"] = 3
	if _, ok := child.Fields()["c"]; ok {
		t.Fatalf("Fields() leaked internal map")
	}
}

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Console(&buf, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
	l.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("warn not written: %q", buf.String())
	}
}

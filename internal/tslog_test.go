package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestTSLogColors(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewTSLog(buf)

	l.Red("bad %s", "thing")

	out := buf.String()
	if !strings.HasPrefix(out, "\033[0;31m") {
		t.Errorf("missing red escape: %q", out)
	}
	if !strings.HasSuffix(out, "bad thing\033[0m\n") {
		t.Errorf("unexpected tail: %q", out)
	}
}

func TestTSLogNoColor(t *testing.T) {
	buf := new(bytes.Buffer)
	l := &TSLog{Out: buf, NoColor: true}

	l.Green("served %d bytes", 12)

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Errorf("escape in uncolored output: %q", out)
	}
	if !strings.HasSuffix(out, " served 12 bytes\n") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestTSLogNil(t *testing.T) {
	var l *TSLog
	l.Log("nothing happens")
	l.Gray("nothing happens")
}

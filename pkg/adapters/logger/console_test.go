package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/frameprocessor/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewConsoleTo(ports.LevelInfo, &out, &errOut)

	log.Debug("hidden %d", 1)
	log.Info("Processed %d frames in %v", 3, "1s")
	log.Warn("Dropping sample: %v", "too big")
	log.Error("Decoder fault: %v", "boom")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug message must be filtered at info level")
	}
	if !strings.Contains(out.String(), "3") {
		t.Errorf("expected info on stdout, got %q", out.String())
	}
	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected warn and error on stderr, got %q", errOut.String())
	}
}

func TestConsoleLogger_Component(t *testing.T) {
	var out bytes.Buffer
	log := NewConsoleTo(ports.LevelDebug, &out, &out).WithComponent("gate")

	log.Debug("tick")

	if got := out.String(); got != "[gate] tick\n" {
		t.Errorf("unexpected output %q", got)
	}
}

package progress

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewSpinner(t *testing.T) {
	var buf bytes.Buffer

	spinner := New(context.Background(), &buf, "Loading...")
	if spinner == nil {
		t.Fatal("New() returned nil")
	}
	if spinner.message != "Loading..." {
		t.Errorf("Expected message %q, got %q", "Loading...", spinner.message)
	}
	if len(spinner.frames) != 6 {
		t.Errorf("Expected 6 frames, got %d", len(spinner.frames))
	}
}

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Testing...")

	if spinner.Active() {
		t.Error("Spinner should not be active initially")
	}

	spinner.Start()
	if !spinner.Active() {
		t.Error("Spinner should be active after Start()")
	}

	// allow a few frames to render
	time.Sleep(250 * time.Millisecond)

	spinner.Stop()
	if spinner.Active() {
		t.Error("Spinner should not be active after Stop()")
	}

	output := buf.String()
	if output == "" {
		t.Fatal("Expected output to be written to buffer")
	}
	if !strings.Contains(output, "Testing...") {
		t.Error("Expected message to appear in output")
	}

	hasFrame := false
	for _, frame := range []string{"◜", "◠", "◝", "◞", "◡", "◟"} {
		if strings.Contains(output, frame) {
			hasFrame = true
			break
		}
	}
	if !hasFrame {
		t.Error("Expected spinner frames in output")
	}

	// redirected output ends with a bare carriage return
	if !strings.HasSuffix(output, "\r") {
		t.Error("Expected output to end with carriage return")
	}
}

func TestSpinnerStep(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "starting")

	spinner.Step(3, 12, "text/ch3.xhtml")
	if spinner.message != "(3/12) text/ch3.xhtml" {
		t.Errorf("Step() message = %q", spinner.message)
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Initial message")

	spinner.SetMessage("Updated message")
	if spinner.message != "Updated message" {
		t.Errorf("Expected message %q, got %q", "Updated message", spinner.message)
	}
}

func TestSpinnerDoubleStartAndStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Testing...")

	// repeated transitions should never wedge or panic
	spinner.Start()
	spinner.Start()
	if !spinner.Active() {
		t.Error("Spinner should be active after repeated Start()")
	}

	spinner.Stop()
	spinner.Stop()
	if spinner.Active() {
		t.Error("Spinner should not be active after repeated Stop()")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Testing...")

	spinner.Stop()
	if spinner.Active() {
		t.Error("Spinner should not be active after Stop() without Start()")
	}
}

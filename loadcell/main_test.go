package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/config"
)

func TestRunConfigFlags(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "bench.yaml")
	err := os.WriteFile(fname, []byte(`
serial:
  port: /dev/ttyUSB1
value_label: modified_weight
display:
  kind: none
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cmd := lcMakeCmdRun()
	err = cmd.Flag.Parse([]string{
		"-cfg=" + fname,
		"-baud=9600",
		"-timeout=1s",
		"-window=250",
		"-csv=run.csv",
		"-v",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := runConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	switch {
	case cfg.Serial.Port != "/dev/ttyUSB1":
		t.Fatalf("file setting lost: port=%q", cfg.Serial.Port)
	case cfg.ValueLabel != "modified_weight":
		t.Fatalf("file setting lost: label=%q", cfg.ValueLabel)
	case cfg.Display.Kind != config.DisplayNone:
		t.Fatalf("file setting lost: display=%q", cfg.Display.Kind)
	case cfg.Serial.Baud != 9600 || cfg.Serial.ReadTimeout != time.Second:
		t.Fatalf("serial flags not applied: %+v", cfg.Serial)
	case cfg.Window != 250 || cfg.CSV != "run.csv":
		t.Fatalf("flags not applied: window=%d csv=%q", cfg.Window, cfg.CSV)
	case cfg.Log.Level != "debug":
		t.Fatalf("got log level %q", cfg.Log.Level)
	}
}

func TestRunConfigInvalid(t *testing.T) {
	cmd := lcMakeCmdRun()
	err := cmd.Flag.Parse([]string{"-window=0", "-display=tty"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = runConfig(cmd)
	if err == nil {
		t.Fatalf("expected an error")
	}
	for _, want := range []string{"trailing window", `unknown display "tty"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

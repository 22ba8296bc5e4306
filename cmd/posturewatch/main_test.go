package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "posturewatch ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"history", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil || root.PersistentFlags().Lookup("debug") == nil {
		t.Error("missing --config or --debug flag")
	}
}

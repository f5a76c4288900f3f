package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRun_NoArgs(t *testing.T) {
	exitCode := run([]string{"oba"})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for no args, got %d", exitCode)
	}
}

func TestRun_Help(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"help command", []string{"oba", "help"}},
		{"short flag", []string{"oba", "-h"}},
		{"long flag", []string{"oba", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode := run(tt.args)
			if exitCode != 0 {
				t.Errorf("expected exit code 0 for help, got %d", exitCode)
			}
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	exitCode := run([]string{"oba", "unknown"})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for unknown command, got %d", exitCode)
	}
}

func TestRun_Version(t *testing.T) {
	exitCode := run([]string{"oba", "version"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for version, got %d", exitCode)
	}
}

func TestRun_VersionShort(t *testing.T) {
	exitCode := run([]string{"oba", "version", "-short"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for version -short, got %d", exitCode)
	}
}

func TestRun_VersionHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"short flag", []string{"oba", "version", "-h"}},
		{"long flag", []string{"oba", "version", "-help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode := run(tt.args)
			if exitCode != 0 {
				t.Errorf("expected exit code 0 for version help, got %d", exitCode)
			}
		})
	}
}

func TestRun_Serve(t *testing.T) {
	exitCode := run([]string{"oba", "serve"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for serve, got %d", exitCode)
	}
}

func TestRun_ServeHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"short flag", []string{"oba", "serve", "-h"}},
		{"long flag", []string{"oba", "serve", "-help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode := run(tt.args)
			if exitCode != 0 {
				t.Errorf("expected exit code 0 for serve help, got %d", exitCode)
			}
		})
	}
}

func TestRun_ServeWithOptions(t *testing.T) {
	exitCode := run([]string{"oba", "serve", "-address", ":1389", "-tls-address", ":1636"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for serve with options, got %d", exitCode)
	}
}

func TestRun_Config(t *testing.T) {
	exitCode := run([]string{"oba", "config"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for config (shows help), got %d", exitCode)
	}
}

func TestRun_ConfigHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"help subcommand", []string{"oba", "config", "help"}},
		{"short flag", []string{"oba", "config", "-h"}},
		{"long flag", []string{"oba", "config", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode := run(tt.args)
			if exitCode != 0 {
				t.Errorf("expected exit code 0 for config help, got %d", exitCode)
			}
		})
	}
}

func TestRun_ConfigUnknownSubcommand(t *testing.T) {
	exitCode := run([]string{"oba", "config", "unknown"})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for unknown config subcommand, got %d", exitCode)
	}
}

func TestRun_ConfigValidate(t *testing.T) {
	// Without required -config flag
	exitCode := run([]string{"oba", "config", "validate"})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for config validate without config, got %d", exitCode)
	}
}

func TestRun_ConfigValidateWithConfig(t *testing.T) {
	// Create a temporary valid config file
	tmpDir := t.TempDir()
	configPath := tmpDir + "/config.yaml"

	validConfig := `
server:
  address: ":389"

storage:
  dataDir: "/var/lib/oba"
`
	if err := os.WriteFile(configPath, []byte(validConfig), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	exitCode := run([]string{"oba", "config", "validate", "-config", configPath})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for config validate with config, got %d", exitCode)
	}
}

func TestRun_ConfigInit(t *testing.T) {
	exitCode := run([]string{"oba", "config", "init"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for config init, got %d", exitCode)
	}
}

func TestRun_ConfigShow(t *testing.T) {
	exitCode := run([]string{"oba", "config", "show"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0 for config show, got %d", exitCode)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	output := buf.String()

	// Check for expected content
	expectedStrings := []string{
		"oba - embeddable LDAP directory server",
		"Usage:",
		"oba <command> [options]",
		"Commands:",
		"serve",
		"reload",
		"config",
		"version",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected usage to contain %q", expected)
		}
	}
}

func TestPrintServeUsage(t *testing.T) {
	var buf bytes.Buffer
	printServeUsage(&buf)

	output := buf.String()

	expectedStrings := []string{
		"Start the LDAP server",
		"-config",
		"-address",
		"-tls-address",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected serve usage to contain %q", expected)
		}
	}
}

func TestPrintConfigUsage(t *testing.T) {
	var buf bytes.Buffer
	printConfigUsage(&buf)

	output := buf.String()

	expectedStrings := []string{
		"Configuration management",
		"validate",
		"init",
		"show",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected config usage to contain %q", expected)
		}
	}
}

func TestPrintVersionUsage(t *testing.T) {
	var buf bytes.Buffer
	printVersionUsage(&buf)

	output := buf.String()

	expectedStrings := []string{
		"Show version information",
		"-short",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected version usage to contain %q", expected)
		}
	}
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	if v == "" {
		t.Error("expected non-empty version")
	}
}

func TestGetCommit(t *testing.T) {
	c := GetCommit()
	if c == "" {
		t.Error("expected non-empty commit")
	}
}

func TestGetBuildDate(t *testing.T) {
	d := GetBuildDate()
	if d == "" {
		t.Error("expected non-empty build date")
	}
}

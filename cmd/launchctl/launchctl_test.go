package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const reply = "Sure!\n```json\n{\"summary\":\"Launch fast\",\"roadmap\":[\"MVP\"],\"zeta\":{\"b\":1,\"a\":2.5}}\n```\nGood luck."

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRenderTextFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	if err := os.WriteFile(path, []byte(reply), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "", "render", path, "--no-color")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "## roadmap\n1. MVP\n\n## summary\nLaunch fast\n\n## zeta\nb:\n  1\na:\n  2.5\n"
	if out != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderYAMLKeepsKeyOrder(t *testing.T) {
	out, _, err := execute(t, reply, "render", "--format", "yaml")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "summary: Launch fast\nroadmap:\n  - MVP\nzeta:\n  b: 1\n  a: 2.5\n"
	if out != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderJSONSections(t *testing.T) {
	out, stderr, err := execute(t, reply, "render", "-", "--format", "json", "--explain")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var sections []struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &sections); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sections) != 3 || sections[0].Key != "roadmap" {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	if !strings.Contains(stderr, "json_fence") {
		t.Fatalf("explain output should name the winning strategy: %q", stderr)
	}
}

func TestRenderUnstructuredIsVerbatim(t *testing.T) {
	out, stderr, err := execute(t, "Sorry, I can't do that.", "render", "--no-color")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Sorry, I can't do that." {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(stderr, "no JSON object found") {
		t.Fatalf("missing notice: %q", stderr)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, _, err := execute(t, reply, "render", "--format", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, _, err := execute(t, "", "render", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTokenIssueAndInspect(t *testing.T) {
	out, _, err := execute(t, "", "token", "issue", "7", "--secret", "s3cret", "--username", "ada")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tok := strings.TrimSpace(out)
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("not a JWT: %q", tok)
	}

	out, _, err = execute(t, "", "token", "inspect", tok, "--secret", "s3cret")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "subject:   7") || !strings.Contains(out, "username:  ada") {
		t.Fatalf("unexpected inspect output: %s", out)
	}

	if _, _, err := execute(t, "", "token", "inspect", tok, "--secret", "other"); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestTokenIssueValidatesUser(t *testing.T) {
	for _, args := range [][]string{
		{"token", "issue", "--secret", "s3cret"},
		{"token", "issue", "ada", "--secret", "s3cret"},
		{"token", "issue", "0", "--secret", "s3cret"},
	} {
		if _, _, err := execute(t, "", args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lg/free-day-go-api/internal/session"
)

var referenceProfile = []string{"--weight", "75", "--height", "175", "--age", "30", "--sex", "male", "--activity", "moderate"}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, sub := range []string{"plan", "classify", "preview", "token"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q:\n%s", sub, out)
		}
	}
}

func TestPlan(t *testing.T) {
	out, err := run(t, append([]string{"plan"}, referenceProfile...)...)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{
		"BMR: 1699 kcal",
		"TDEE: 2633 kcal",
		"Weekly target: 14931 kcal",
		"Routine day: 2050 kcal",
		"Free day: 4683 kcal",
		"followed\t4683",
		"small_deviations\t4215",
		"lost_control\t3512",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestPlan_FlatPolicy(t *testing.T) {
	out, err := run(t, append([]string{"plan", "--policy", "flat"}, referenceProfile...)...)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(out, "lost_control\t4683") {
		t.Errorf("flat policy should not scale the margin:\n%s", out)
	}
}

func TestPlan_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing flags", []string{"plan", "--weight", "75"}},
		{"bad goal", append([]string{"plan", "--goal", "1"}, referenceProfile...)},
		{"bad policy", append([]string{"plan", "--policy", "generous"}, referenceProfile...)},
		{"bad sex", []string{"plan", "--weight", "75", "--height", "175", "--age", "30", "--sex", "x", "--activity", "moderate"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := run(t, tc.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		consumed, margin string
		want             string
		advice           bool
	}{
		{"4683", "4683", "green (+0 kcal)", false},
		{"4900", "4683", "yellow (+217 kcal)", true},
		{"5000", "4215", "red (+785 kcal)", true},
	}
	for _, tc := range cases {
		out, err := run(t, "classify", "--consumed", tc.consumed, "--margin", tc.margin)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if !strings.Contains(out, tc.want) {
			t.Errorf("classify %s/%s = %q, want %q", tc.consumed, tc.margin, out, tc.want)
		}
		if got := strings.Contains(out, "Reduce"); got != tc.advice {
			t.Errorf("classify %s/%s advice present = %v, want %v", tc.consumed, tc.margin, got, tc.advice)
		}
	}

	if _, err := run(t, "classify", "--consumed", "-1", "--margin", "10"); err == nil {
		t.Error("expected error for negative consumed")
	}
}

func TestPreview(t *testing.T) {
	args := append([]string{"preview",
		"--lunch", "moderate",
		"--item", "Pizza slice:300:2",
		"--extra", "150",
		"--quality", "small_deviations",
	}, referenceProfile...)
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{
		"Meals: 550 kcal",
		"Items: 600 kcal",
		"Extra: 150 kcal",
		"Total: 1300 kcal",
		"Margin: 4215 kcal (free day 4683, -468 for quality)",
		"Remaining: 2915 kcal",
		"Usage: 31%",
		"Result: green",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("preview output missing %q:\n%s", want, out)
		}
	}
}

func TestPreview_Errors(t *testing.T) {
	cases := []struct {
		name  string
		extra []string
	}{
		{"bad item", []string{"--item", "Pizza:300"}},
		{"negative qty", []string{"--item", "Pizza:300:-1"}},
		{"bad intensity", []string{"--lunch", "huge"}},
		{"bad quality", []string{"--quality", "perfect"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append(append([]string{"preview"}, referenceProfile...), tc.extra...)
			if _, err := run(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseItem_NameWithColon(t *testing.T) {
	it, err := parseItem("Beer: IPA:150:3")
	if err != nil {
		t.Fatalf("parseItem: %v", err)
	}
	if it.Name != "Beer: IPA" || it.KcalEach != 150 || it.Quantity != 3 {
		t.Errorf("got %+v", it)
	}
}

func TestToken(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "free-day.db")
	args := []string{"token", "--db-driver", "sqlite", "--db", dbPath, "--secret", "test-secret",
		"--google-id", "g-123", "--email", "ana@example.com", "--name", "Ana"}

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	userID, token := parseTokenOutput(t, out)
	if !strings.Contains(out, "Activated: false") {
		t.Errorf("new user should not be activated:\n%s", out)
	}

	got, err := session.NewSigner("test-secret", time.Hour).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Errorf("token subject = %q, want %q", got, userID)
	}

	out, err = run(t, args...)
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if again, _ := parseTokenOutput(t, out); again != userID {
		t.Errorf("second run created user %q, want existing %q", again, userID)
	}
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	dbPath := filepath.Join(t.TempDir(), "free-day.db")
	_, err := run(t, "token", "--db-driver", "sqlite", "--db", dbPath, "--google-id", "g", "--email", "a@b.c")
	if err == nil {
		t.Error("expected error without a secret")
	}
}

func parseTokenOutput(t *testing.T, out string) (userID, token string) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "User: "); ok {
			userID, _, _ = strings.Cut(rest, " ")
		}
		if rest, ok := strings.CutPrefix(line, "Token: "); ok {
			token = rest
		}
	}
	if userID == "" || token == "" {
		t.Fatalf("unexpected token output:\n%s", out)
	}
	return userID, token
}

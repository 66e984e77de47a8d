package resend

import (
	"strings"
	"testing"

	"github.com/brk3/steady/pkg/habit"
)

func TestRender(t *testing.T) {
	body, err := render([]habit.View{
		{ID: "g", Name: "guitar", Streak: 3},
		{ID: "x", Name: "<script>", Streak: 9},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "guitar (3 day streak)") {
		t.Errorf("missing guitar entry:\n%s", body)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("habit name not escaped:\n%s", body)
	}
	if strings.Index(body, "&lt;script&gt;") > strings.Index(body, "guitar") {
		t.Errorf("expected longest streak first:\n%s", body)
	}
}

func TestRender_SameNameHabitsKeepOwnStreaks(t *testing.T) {
	body, err := render([]habit.View{
		{ID: "run-am", Name: "run", Streak: 4},
		{ID: "run-pm", Name: "run", Streak: 9},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "run (9 day streak)") || !strings.Contains(body, "run (4 day streak)") {
		t.Errorf("expected both run entries with their own streaks:\n%s", body)
	}
}

func TestSendNudge_MissingConfig(t *testing.T) {
	n := &ResendNotifier{From: "a@example.com"}
	if err := n.SendNudge([]habit.View{{Name: "guitar"}}); err == nil {
		t.Fatal("expected error without api key")
	}
}

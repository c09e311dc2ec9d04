package docs

import (
	"strings"
	"testing"
)

func TestTopicsAreSortedAndDescribed(t *testing.T) {
	topics := Topics()
	var names []string
	for _, tp := range topics {
		names = append(names, tp.Name)
		if tp.Title == "" || tp.Summary == "" {
			t.Fatalf("topic %q missing title or summary: %+v", tp.Name, tp)
		}
	}
	if got, want := strings.Join(names, ","), "generate,overview,pages,setup-format"; got != want {
		t.Fatalf("topics = %s, want %s", got, want)
	}
}

func TestGet(t *testing.T) {
	body, ok := Get(" Overview ")
	if !ok || !strings.HasPrefix(body, "# pagemgr overview") {
		t.Fatalf("unexpected overview: ok=%v body=%q", ok, body)
	}
	for _, bad := range []string{"", "missing", "../docs"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("expected %q to be unknown", bad)
		}
	}
}

package linkcheck

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const intro = `# Intro

Text <a name="trace1_1"></a><a href="#note1_1"><sup>1</sup></a>.

<a name="note1_1"></a><sup>1</sup> My Document REQ-1`

func TestCheck_Valid(t *testing.T) {
	pages := []Page{
		{Path: "intro.md", Content: intro},
		{Path: "appendix/matrix.md", Content: "| Record | Traces |\n|--------|--------|\n| REQ-1 | [1.1](../intro.md#trace1_1), [html](../intro.html#trace1_1) |\n"},
		{Path: "space dir/page.md", Content: "[x](../intro.md#note1_1)"},
		{Path: "", Content: "draft [1.1](intro.md#trace1_1)"},
	}
	broken, err := Check(pages)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(broken) != 0 {
		t.Errorf("expected no broken links, got %v", broken)
	}
}

func TestCheck_Broken(t *testing.T) {
	pages := []Page{
		{Path: "intro.md", Content: intro + "\n\n[self](#trace9_9)"},
		{Path: "matrix.md", Content: "| Record | Traces |\n|--------|--------|\n| REQ-1 | [1.1](gone.md#trace1_1), [1.2](intro.md#trace1_2) |\n"},
	}
	broken, err := Check(pages)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []Broken{
		{From: "intro.md", Href: "#trace9_9", Reason: "no anchor trace9_9"},
		{From: "matrix.md", Href: "gone.md#trace1_1", Reason: "no page gone.md"},
		{From: "matrix.md", Href: "intro.md#trace1_2", Reason: "no anchor trace1_2"},
	}
	if diff := cmp.Diff(want, broken); diff != "" {
		t.Errorf("broken mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_IgnoresOtherLinks(t *testing.T) {
	pages := []Page{{
		Path:    "a.md",
		Content: "[ext](https://example.com/x.md#trace1_1) [sec](missing.md#setup) [top](#intro) [plain](missing.md)",
	}}
	broken, err := Check(pages)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(broken) != 0 {
		t.Errorf("expected no broken links, got %v", broken)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		from, p, want string
	}{
		{"a/b.md", "../c.md", "c.md"},
		{"a/b.md", "c.html", "a/c.md"},
		{"", "x/y.md", "x/y.md"},
		{"b.md", "./b.md", "b.md"},
	}
	for _, tt := range tests {
		if got := resolve(tt.from, tt.p); got != tt.want {
			t.Errorf("resolve(%q, %q) = %q, want %q", tt.from, tt.p, got, tt.want)
		}
	}
}

func TestBroken_String(t *testing.T) {
	b := Broken{Href: "x.md#trace1", Reason: "no page x.md"}
	if got, want := b.String(), "(draft): x.md#trace1: no page x.md"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package marker

import "testing"

func TestStyleFor(t *testing.T) {
	for _, tc := range []struct {
		path string
		want Style
	}{
		{path: "NOTES.md", want: StyleMarkup},
		{path: "docs/index.html", want: StyleMarkup},
		{path: "diagram.svg", want: StyleMarkup},
		{path: "README.MD", want: StyleMarkup},
		{path: "Makefile", want: StyleLine},
		{path: ".envrc", want: StyleLine},
		{path: "script.sh", want: StyleLine},
		{path: "config.yaml", want: StyleLine},
	} {
		t.Run(tc.path, func(t *testing.T) {
			if got := StyleFor(tc.path); got != tc.want {
				t.Errorf("StyleFor(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	got := Wrap(StyleMarkup, "Rule: keep it simple")
	want := "<!-- graft:start -->\nRule: keep it simple\n<!-- graft:end -->\n"
	if got != want {
		t.Errorf("Wrap = %q, want %q", got, want)
	}

	// Content with a trailing newline must not gain a blank line.
	if Wrap(StyleMarkup, "Rule: keep it simple\n") != want {
		t.Error("Wrap should normalize trailing newlines")
	}
}

func TestFind(t *testing.T) {
	text := "before\n# === graft:start ===\nmanaged\n# === graft:end ===\nafter\n"

	body, count, found := Find(StyleLine, text)
	if !found {
		t.Fatal("expected to find a region")
	}
	if body != "managed\n" {
		t.Errorf("body = %q, want %q", body, "managed\n")
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestFind_NoRegion(t *testing.T) {
	if _, _, found := Find(StyleLine, "plain content\n"); found {
		t.Error("found a region in plain content")
	}
}

func TestFind_SentinelMidLine(t *testing.T) {
	// Sentinels only count at the start of their own line.
	text := "text mentioning # === graft:start === inline\nmore\n"
	if _, _, found := Find(StyleLine, text); found {
		t.Error("mid-line sentinel should not open a region")
	}
}

func TestFind_MultipleRegions(t *testing.T) {
	region := "<!-- graft:start -->\nfirst\n<!-- graft:end -->\n"
	second := "<!-- graft:start -->\nsecond\n<!-- graft:end -->\n"
	text := region + "middle\n" + second

	body, count, found := Find(StyleMarkup, text)
	if !found {
		t.Fatal("expected to find regions")
	}
	if body != "first\n" {
		t.Errorf("body = %q, want first region", body)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestStrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		style Style
		text  string
		want  string
		count int
	}{
		{
			name:  "single region",
			style: StyleLine,
			text:  "keep\n# === graft:start ===\ndrop\n# === graft:end ===\nalso keep\n",
			want:  "keep\nalso keep\n",
			count: 1,
		},
		{
			name:  "region only",
			style: StyleMarkup,
			text:  "<!-- graft:start -->\nRule: keep it simple\n<!-- graft:end -->\n",
			want:  "",
			count: 1,
		},
		{
			name:  "two regions",
			style: StyleMarkup,
			text:  "<!-- graft:start -->\na\n<!-- graft:end -->\nuser\n<!-- graft:start -->\nb\n<!-- graft:end -->\n",
			want:  "user\n",
			count: 2,
		},
		{
			name:  "no region",
			style: StyleLine,
			text:  "untouched\n",
			want:  "untouched\n",
			count: 0,
		},
		{
			name:  "region without trailing newline",
			style: StyleMarkup,
			text:  "user\n<!-- graft:start -->\nbody\n<!-- graft:end -->",
			want:  "user\n",
			count: 1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, count := Strip(tc.style, tc.text)
			if got != tc.want {
				t.Errorf("Strip = %q, want %q", got, tc.want)
			}
			if count != tc.count {
				t.Errorf("count = %d, want %d", count, tc.count)
			}
		})
	}
}

func TestWrapFindRoundTrip(t *testing.T) {
	body := "line one\nline two"
	wrapped := Wrap(StyleLine, body)

	found, count, ok := Find(StyleLine, wrapped)
	if !ok || count != 1 {
		t.Fatalf("Find after Wrap: ok=%v count=%d", ok, count)
	}
	if found != Normalize(body) {
		t.Errorf("extracted body = %q, want %q", found, Normalize(body))
	}
}

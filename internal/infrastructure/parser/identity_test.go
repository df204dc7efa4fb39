package parser

import (
	"testing"

	"BoardRelay/internal/domain"
)

func TestResolvePostIDQueryForm(t *testing.T) {
	t.Parallel()

	base := "https://www.example.com/bbs/hgall.php?bo_table=humor"

	id, canonical, ok := ResolvePostID("board.php?bo_table=humor&wr_id=4821", base, "example", "humor")
	if !ok {
		t.Fatal("expected a post link")
	}
	if id != (domain.PostID{Site: "example", Board: "humor", Number: 4821}) {
		t.Fatalf("unexpected id: %+v", id)
	}
	if canonical != "https://www.example.com/bbs/board.php?bo_table=humor&wr_id=4821" {
		t.Fatalf("unexpected canonical url: %s", canonical)
	}
}

func TestResolvePostIDPathForm(t *testing.T) {
	t.Parallel()

	id, _, ok := ResolvePostID("/bbs/humor/123", "https://www.example.com/", "example", "")
	if !ok {
		t.Fatal("expected a post link")
	}
	if id.Board != "humor" || id.Number != 123 {
		t.Fatalf("unexpected id: %+v", id)
	}
}

func TestResolvePostIDDefaultBoard(t *testing.T) {
	t.Parallel()

	id, _, ok := ResolvePostID("view.php?wr_id=77", "https://www.example.com/", "example", "humor")
	if !ok {
		t.Fatal("expected a post link")
	}
	if id.Board != "humor" {
		t.Fatalf("expected default board, got %s", id.Board)
	}
}

func TestResolvePostIDBrokenEscapes(t *testing.T) {
	t.Parallel()

	// A trailing stray percent drops the parsed query; the loose scan must
	// still find the number instead of failing.
	id, _, ok := ResolvePostID("board.php?bo_table=humor&wr_id=66%", "https://www.example.com/", "example", "")
	if !ok {
		t.Fatal("expected a post link")
	}
	if id.Number != 66 || id.Board != "humor" {
		t.Fatalf("unexpected id: %+v", id)
	}
}

func TestResolvePostIDRejectsNonPostLinks(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"javascript:void(0)",
		"https://www.example.com/bbs/hgall.php?bo_table=humor",
		"/member/login.php",
		"#comment",
	}

	for _, href := range cases {
		if _, _, ok := ResolvePostID(href, "https://www.example.com/", "example", "humor"); ok {
			t.Fatalf("expected %q to be classified as not a post link", href)
		}
	}
}

func TestResolvePostIDRejectsWithoutBoard(t *testing.T) {
	t.Parallel()

	if _, _, ok := ResolvePostID("view.php?wr_id=5", "https://www.example.com/", "example", ""); ok {
		t.Fatal("expected rejection when no board can be established")
	}
}

func TestAbsolutize(t *testing.T) {
	t.Parallel()

	base := "https://www.example.com/bbs/board.php?wr_id=1"

	if got := Absolutize(base, "//cdn.example.com/a.jpg"); got != "https://cdn.example.com/a.jpg" {
		t.Fatalf("scheme-relative: got %s", got)
	}
	if got := Absolutize(base, "/data/file/a.jpg"); got != "https://www.example.com/data/file/a.jpg" {
		t.Fatalf("root-relative: got %s", got)
	}
	if got := Absolutize(base, ""); got != "" {
		t.Fatalf("empty ref: got %q", got)
	}
}

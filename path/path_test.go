package path

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"a", []string{"a"}},
		{"root/0/child/a", []string{"root", "0", "child", "a"}},
		{"/a//b/", []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := Parse(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("Parse(%q): got %q want %q", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Parse(%q): got %q want %q", tc.in, got, tc.want)
			}
		}
	}
}

func TestJoinAndString(t *testing.T) {
	p := Parse("a/b")
	q := p.Join("c/d")
	if q.String() != "a/b/c/d" {
		t.Fatalf("Join: got %s", q)
	}
	if p.String() != "a/b" {
		t.Fatalf("Join mutated the receiver: %s", p)
	}
	if !Parse("").IsEmpty() || Parse("x").IsEmpty() {
		t.Fatalf("IsEmpty wrong")
	}
}

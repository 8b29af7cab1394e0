package smtp

import "testing"

func TestIsWellFormedOutsideData(t *testing.T) {
	cases := []struct {
		name string
		line []byte
		want bool
	}{
		{"well formed", []byte("HELO host\r\n"), true},
		{"too short", []byte("\r\n"), false},
		{"missing crlf", []byte("HELO host\n"), false},
		{"trailing space before cr", []byte("HELO \r\n"), false},
		{"trailing tab before cr", []byte("HELO\t\r\n"), false},
		{"bare dot", []byte(".\r\n"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsWellFormedOutsideData(c.line); got != c.want {
				t.Errorf("IsWellFormedOutsideData(%q) = %v, want %v", c.line, got, c.want)
			}
		})
	}
}

func TestIsWellFormedInData(t *testing.T) {
	cases := []struct {
		name string
		line []byte
		want bool
	}{
		{"normal body line", []byte("hello world\r\n"), true},
		{"blank line", []byte("\r\n"), true},
		{"trailing space before cr ok", []byte("hi \r\n"), true},
		{"missing crlf", []byte("hello\n"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsWellFormedInData(c.line); got != c.want {
				t.Errorf("IsWellFormedInData(%q) = %v, want %v", c.line, got, c.want)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		line    string
		wantCmd string
		wantArg string
	}{
		{"HELO host\r\n", "HELO", "host"},
		{"mail FROM:<a@b>\r\n", "MAIL", "FROM:<a@b>"},
		{"QUIT\r\n", "QUIT", ""},
		{"DATA\r\n", "DATA", ""},
	}
	for _, c := range cases {
		cmd, arg := SplitCommand([]byte(c.line))
		if cmd != c.wantCmd || arg != c.wantArg {
			t.Errorf("SplitCommand(%q) = (%q, %q), want (%q, %q)", c.line, cmd, arg, c.wantCmd, c.wantArg)
		}
	}
}

func TestParseBracketedAddress(t *testing.T) {
	cases := []struct {
		arg     string
		keyword string
		wantOK  bool
		wantVal string
	}{
		{"FROM:<a@b.com>", "FROM:", true, "a@b.com"},
		{"from:<a@b.com>", "FROM:", true, "a@b.com"},
		{"TO:<bob>", "TO:", true, "bob"},
		{"FROM:<>", "FROM:", false, ""},
		{"FROM<a@b.com>", "FROM:", false, ""},
		{"TO:bob", "TO:", false, ""},
		{"FROM:<a@x>junk", "FROM:", false, ""},
		{"TO:<bob>extra", "TO:", false, ""},
	}
	for _, c := range cases {
		addr, ok := parseBracketedAddress(c.arg, c.keyword)
		if ok != c.wantOK || addr != c.wantVal {
			t.Errorf("parseBracketedAddress(%q, %q) = (%q, %v), want (%q, %v)", c.arg, c.keyword, addr, ok, c.wantVal, c.wantOK)
		}
	}
}

package sanitize

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "<p>No content provided</p>"},
		{"whitespace only", "  \n\t", "<p>No content provided</p>"},
		{"plain text wrapped", "hello", "<p>hello</p>"},
		{"script defused", "<script>alert(1)</script>", "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"},
		{"allowed tags kept", "<h2>Title</h2><p>Body</p>", "<h2>Title</h2><p>Body</p>"},
		{"bare ampersand escaped", "<p>R&D</p>", "<p>R&amp;D</p>"},
		{"existing entity preserved", "<p>a &amp; b &#169; &#x2014;</p>", "<p>a &amp; b &#169; &#x2014;</p>"},
		{"self closing br", "<p>one<br/>two<br>three</p>", "<p>one<br/>two<br>three</p>"},
		{"spaced self closing", "<hr />", "<hr/>"},
		{"uppercase tag", "<P>x</P>", "<P>x</P>"},
		{"lists", "<ul><li>a</li><li>b</li></ul>", "<ul><li>a</li><li>b</li></ul>"},
		{"unbalanced wrapped in div", "<p>one<p>two", "<div><p>one<p>two</div>"},
		{"attributes stay escaped", `<p class="x">hi</p>`, `<div>&lt;p class="x"&gt;hi</p></div>`},
		{"iframe inside paragraph", "<p><iframe src=x></iframe></p>", "<p>&lt;iframe src=x&gt;&lt;/iframe&gt;</p>"},
		{"pre is not p", "<pre>code</pre>", "<p>&lt;pre&gt;code&lt;/pre&gt;</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTML(tt.in); got != tt.want {
				t.Errorf("HTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHTML_NoLiveScriptAfterTwoPasses(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"<SCRIPT SRC=//evil></SCRIPT>",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"<p><script>x</script></p>",
		"<scr<script>ipt>alert(1)</script>",
		"<img src=x onerror=alert(1)>",
	}
	for _, in := range inputs {
		once := HTML(in)
		twice := HTML(once)
		for _, out := range []string{once, twice} {
			lower := strings.ToLower(out)
			if strings.Contains(lower, "<script") || strings.Contains(lower, "<img") {
				t.Errorf("HTML(%q) produced live markup: %q", in, out)
			}
		}
	}
}

func TestHTML_StableOnCleanOutput(t *testing.T) {
	in := "<h1>Decisions</h1><ul><li>Use <strong>Postgres</strong></li></ul>"
	once := HTML(in)
	if twice := HTML(once); twice != once {
		t.Errorf("second pass changed output:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestBalanced(t *testing.T) {
	if !Balanced("<div><p>x</p><br><hr/><img/></div>") {
		t.Error("expected balanced")
	}
	if Balanced("<div><p>x</div>") {
		t.Error("expected unbalanced")
	}
}

func TestEscape(t *testing.T) {
	if got := Escape(`Q&A <notes>`); got != "Q&amp;A &lt;notes&gt;" {
		t.Errorf("Escape = %q", got)
	}
}

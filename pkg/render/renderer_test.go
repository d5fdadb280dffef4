package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/vango-dev/site/pkg/vdom"
)

type nameKey struct{}

func TestRenderToString(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		node *VNode
		want string
	}{
		{"nil", nil, ""},
		{"text escaped", Text("<b>&"), "&lt;b&gt;&amp;"},
		{"raw", Raw("<b>hi</b>"), "<b>hi</b>"},
		{"element", Div(Class("card"), ID("x"), "hi"), `<div class="card" id="x">hi</div>`},
		{"void", Meta(Name("description"), Content("a \"b\"")), `<meta content="a &quot;b&quot;" name="description">`},
		{"boolean true", Input(Type("email"), Required()), `<input required type="email">`},
		{"boolean false", Script(Src("/c.js"), Attr{Key: "defer", Value: false}), `<script src="/c.js"></script>`},
		{"fragment", Fragment(P("a"), P("b")), "<p>a</p><p>b</p>"},
		{"int attr", Img(Width(10), Alt("")), `<img width="10">`},
		{"key skipped", Li(Key(3), "x"), "<li>x</li>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderToString(ctx, tt.node)
			if err != nil {
				t.Fatalf("RenderToString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderToString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderComponentSeesContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), nameKey{}, "Acme")
	greet := Func(func(ctx context.Context) *VNode {
		return H1(Textf("Hello %s", ctx.Value(nameKey{})))
	})

	got, err := RenderToString(ctx, Main(greet))
	if err != nil {
		t.Fatal(err)
	}
	if got != "<main><h1>Hello Acme</h1></main>" {
		t.Errorf("got %q", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	node := A(Href("/blog"), Class("nav"), AriaCurrent("page"), Data("slug", "x"), "Blog")
	first, _ := RenderToString(context.Background(), node)
	for i := 0; i < 20; i++ {
		again, _ := RenderToString(context.Background(), node)
		if again != first {
			t.Fatalf("render %d = %q, want %q", i, again, first)
		}
	}
}

func TestRenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RenderToString(ctx, Div("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := RenderToString(context.Background(), &VNode{Kind: VKind(99)})
	if err == nil || !strings.Contains(err.Error(), "unknown node kind") {
		t.Fatalf("err = %v", err)
	}
}

func TestPrettyRender(t *testing.T) {
	r := NewRenderer(RendererConfig{Pretty: true})
	got, err := r.RenderToString(context.Background(), Div(P(Span("x"))))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "\n  <p>") {
		t.Errorf("pretty output missing indentation: %q", got)
	}
}

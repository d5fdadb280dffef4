package vdom

import "context"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <a>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Nested component
	KindRaw                    // Trusted HTML
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is a node in the page tree.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes
	Children []*VNode  // Child nodes
	Key      string    // Stable identity among siblings
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent
}

// Props holds element attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Component is anything that can render to a VNode.
type Component interface {
	Render(ctx context.Context) *VNode
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func(ctx context.Context) *VNode
}

// Render implements Component.
func (f *FuncComponent) Render(ctx context.Context) *VNode {
	return f.render(ctx)
}

// Func creates a component from a render function.
func Func(render func(ctx context.Context) *VNode) Component {
	return &FuncComponent{render: render}
}

// Expand renders every component in the tree and returns a tree that only
// contains elements, text, fragments and raw nodes. It is used by callers
// that need to inspect what a page produced without rendering it to HTML.
func Expand(ctx context.Context, node *VNode) *VNode {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case KindComponent:
		if node.Comp == nil {
			return nil
		}
		return Expand(ctx, node.Comp.Render(ctx))
	case KindElement, KindFragment:
		out := *node
		out.Children = make([]*VNode, 0, len(node.Children))
		for _, child := range node.Children {
			if c := Expand(ctx, child); c != nil {
				out.Children = append(out.Children, c)
			}
		}
		return &out
	default:
		return node
	}
}

// Package render turns vdom trees into HTML.
//
// Rendering is deterministic: attributes are written in sorted order and
// components are rendered in document order with the context passed to the
// renderer. The output of a page rendered on the server and the output of
// the same page rendered in the browser are expected to match byte for byte
// when they see the same request info and query cache.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(ctx, node)
//
// # Security
//
// All text content and attribute values are escaped. Raw HTML is written
// as-is and must only hold trusted or sanitized markup.
package render

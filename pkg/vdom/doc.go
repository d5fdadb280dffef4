// Package vdom provides the node tree that site pages are built from.
//
// A page is a tree of VNode values: elements, text, fragments, nested
// components and trusted raw HTML. The tree is rendered to a string on the
// server by package render and, in the browser build, the same tree is
// rendered again so hydration can reuse the server markup.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	)
//
// # Components
//
// A Component renders with a context.Context. The context carries the
// request-scoped values a page needs while rendering (request info, the
// query cache and the head registry), so the same component works during
// server rendering, prerendering and hydration.
package vdom

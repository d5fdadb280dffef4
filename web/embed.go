// Package web holds the files compiled into the site binaries.
package web

import "embed"

// SiteYAML is the default site content. The server and the browser client
// both parse it, so they render the same pages.
//
//go:embed site.yaml
var SiteYAML []byte

// Shell is the HTML shell pages are assembled into.
//
//go:embed index.html
var Shell string

// Assets are served under /assets/.
//
//go:embed assets
var Assets embed.FS

// Package errors provides structured, actionable errors for the site's
// command line.
//
// Each error has a registered code (e.g., "S200") that maps to a category,
// a short message, a longer detail and a fix hint. The route or file the
// error concerns is attached by the caller:
//
//	err := errors.New("S400").
//	    WithRoute("/about").
//	    Wrap(cause)
//
//	errors.PrintError(os.Stderr, err)
//	// ERROR S400: Prerender failed
//	//
//	//   route: /about
//	//
//	//   ssr: render /about: context canceled
//	//
//	//   No prerendered files were replaced; the previous output is intact.
//
// SiteError implements Unwrap, so sentinel errors such as
// prerender.ErrMissingTemplate stay visible to errors.Is.
package errors

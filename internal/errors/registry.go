package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (S100-S199)
	// ============================================

	"S100": {
		Category:   CategoryConfig,
		Message:    "Site file not found",
		Detail:     "The site content file could not be read.",
		Suggestion: "Create site.yaml or point SITE_CONFIG at an existing file",
	},
	"S101": {
		Category:   CategoryConfig,
		Message:    "Invalid site file",
		Detail:     "The site content file is not valid YAML or is missing required fields.",
		Suggestion: "Check site.yaml against the example in the repository root",
	},
	"S102": {
		Category: CategoryConfig,
		Message:  "Invalid environment",
		Detail:   "An environment variable could not be parsed.",
	},

	// ============================================
	// Template Errors (S200-S299)
	// ============================================

	"S200": {
		Category:   CategoryTemplate,
		Message:    "Shell template missing",
		Detail:     "The HTML shell used to assemble pages does not exist.",
		Suggestion: "Build the client first or pass --template with the shell path",
	},
	"S201": {
		Category:   CategoryTemplate,
		Message:    "Invalid shell template",
		Detail:     "The shell must contain <!--ssr-head-->, <!--ssr-body--> and <!--ssr-data--> exactly once each.",
		Suggestion: "Restore the markers in web/index.html",
	},

	// ============================================
	// Render Errors (S300-S399)
	// ============================================

	"S300": {
		Category: CategoryRender,
		Message:  "Render failed",
	},
	"S301": {
		Category:   CategoryBackend,
		Message:    "Backend unavailable",
		Detail:     "A blog backend call failed while prefetching route data.",
		Suggestion: "Check DATABASE_URL and that the database is reachable",
	},

	// ============================================
	// Prerender Errors (S400-S499)
	// ============================================

	"S400": {
		Category: CategoryPrerender,
		Message:  "Prerender failed",
		Detail:   "No prerendered files were replaced; the previous output is intact.",
	},
	"S401": {
		Category:   CategoryPublish,
		Message:    "Publish failed",
		Detail:     "Uploading prerendered files to object storage failed.",
		Suggestion: "Check the bucket name and AWS credentials",
	},

	// ============================================
	// Store Errors (S500-S599)
	// ============================================

	"S500": {
		Category:   CategoryStore,
		Message:    "Database unavailable",
		Suggestion: "Check DATABASE_URL (sqlite://path or postgres://...)",
	},
	"S501": {
		Category: CategoryStore,
		Message:  "Migration failed",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

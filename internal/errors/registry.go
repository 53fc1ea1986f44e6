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
	// Payload Errors (E020-E039)
	// ============================================

	"E020": {
		Category:   CategoryPayload,
		Message:    "Malformed link payload",
		Detail:     "The text after '#' is not unpadded base64url. It may have been cut off or edited by the app it was shared through.",
		Suggestion: "Double-check your link and copy it again from the original message.",
	},
	"E021": {
		Category:   CategoryPayload,
		Message:    "Corrupt link payload",
		Detail:     "The payload is valid base64url but does not hold a complete compressed stream.",
		Suggestion: "Double-check your link. The end of it is probably missing.",
	},
	"E022": {
		Category:   CategoryPayload,
		Message:    "Link payload is not UTF-8 text",
		Detail:     "The payload decompressed, but the result is not valid UTF-8.",
		Suggestion: "The link was not made by hashpad, or it was altered.",
	},
	"E023": {
		Category:   CategoryPayload,
		Message:    "Link payload is too large",
		Detail:     "The decompressed text exceeds the configured maximum size.",
		Suggestion: "Raise codec.maxTextSize in hashpad.yaml if you trust the link.",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "A websocket message did not contain exactly one well-formed frame.",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Invalid event",
		Detail:   "An event frame could not be decoded.",
	},
	"E062": {
		Category:   CategoryProtocol,
		Message:    "Event queue full",
		Detail:     "The client sent events faster than the session could apply them.",
		Suggestion: "Raise server.maxEventQueue or check for a misbehaving client.",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Detail:     "The configuration file could not be parsed.",
		Suggestion: "Check the file for syntax errors.",
	},
	"E121": {
		Category:   CategoryConfig,
		Message:    "Unsupported configuration format",
		Detail:     "Configuration files must end in .json, .yaml or .yml.",
		Suggestion: "Rename the file to hashpad.yaml or hashpad.json.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or has the wrong form.",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E141": {
		Category:   CategoryCLI,
		Message:    "Configuration file not found",
		Detail:     "The configuration file given with --config does not exist.",
		Suggestion: "Check the path, or omit --config to use hashpad.yaml from the project root.",
	},
	"E150": {
		Category:   CategoryCLI,
		Message:    "Clipboard unavailable",
		Detail:     "No clipboard utility was found. On Linux install xclip, xsel or wl-clipboard.",
		Suggestion: "Run without --copy and copy the printed link by hand.",
	},
	"E151": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
}

// GetAllCodes returns all registered error codes in order.
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

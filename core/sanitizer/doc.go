// Package sanitizer cleans user-supplied strings before they are validated.
//
// Functions can be called directly or applied through `sanitize` struct tags:
//
//	type payload struct {
//		Name string `sanitize:"display_name"`
//		Body string `sanitize:"text"`
//	}
//
//	if err := sanitizer.SanitizeStruct(&p); err != nil {
//		return err
//	}
//
// Composite sanitizers:
//
//   - display_name: drop control characters, NFC-normalise, fold line breaks and
//     inner whitespace runs to single spaces, trim
//   - text: drop control characters (keeping \n and \t), NFC-normalise, trim
//
// Sanitizers never fail and are idempotent: applying one to its own output is a no-op.
package sanitizer

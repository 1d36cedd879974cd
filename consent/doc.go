// Package consent defines the data model of the consent message surface:
// the request a caller sends, the display preference it carries, the
// consent message variants, the response envelope and the error taxonomy.
//
// Variant types (DeviceSpec, ConsentMessage, Error, Result) encode to JSON as
// single-key objects whose key names the variant, mirroring the Candid shape
// of the ICRC-21 interface:
//
//	{"LineDisplay":{"characters_per_line":20,"lines_per_page":3}}
//	{"Ok":{"metadata":{"language":"en","utc_offset_minutes":null},
//	       "consent_message":{"GenericDisplayMessage":"..."}}}
//	{"Err":{"UnsupportedCanisterCall":{"description":"..."}}}
//
// Errors are values. Functions in this module return *Error for failures a
// caller can correct and never panic across the package boundary.
package consent

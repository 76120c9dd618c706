// Package rehab normalizes loosely-structured worker text into strict JSON
// before parsing.
//
// Generative workers wrap JSON in markdown fences, surround it with prose,
// and quote keys and values with single quotes. Rehabilitation strips the
// fences, slices from the first '{' to the last '}', and rewrites
// single-quoted strings to strict double quoting when the extracted text is
// not already valid JSON. Every non-mixing stage passes its payload through
// this one implementation; the fail-soft neutral defaults for the emotion
// and narration stages live here too.
package rehab

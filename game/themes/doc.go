// Package themes manages the card theme catalog.
//
// A theme is a named pool of card faces loaded from a JSON file in the
// themes directory. The pool size bounds the board sizes a theme can
// serve: a board needs floor(n²/2) distinct values, so a theme with 8
// faces tops out at 4x4. Themes are cached after first load; GetDefault
// always works, falling back to a built-in numeric theme when the
// directory has no default file.
package themes

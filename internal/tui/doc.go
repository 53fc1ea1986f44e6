// Package tui is the terminal host for the sync controller.
//
// The editor is a bubbles textarea; the "URL" is an in-memory history rooted
// at the configured base URL. Typing rewrites the link after the debounce
// period, exactly as the browser page does, and the footer always shows the
// current link so it can be copied and shared. Pasting a link with ctrl+o
// behaves like opening it in the address bar.
package tui

// Package present shows a Neovim session in a terminal using tcell.
//
// Terminal implements ui.Window. The window callbacks run on the connection's
// read goroutine, so they only post events to the screen's queue; Run picks
// them up together with keyboard, mouse, paste and resize events and draws
// the latest complete grid from ui.Controller.GlobalGrid.
//
// Key events are translated to Neovim key notation (KeyToInput) and sent with
// nvim_input; mouse events go through nvim_input_mouse. Terminals without
// true color get RGB colors mapped to the nearest palette entry.
package present

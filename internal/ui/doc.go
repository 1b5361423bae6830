// Package ui turns Neovim redraw notifications into a grid of styled cells.
//
// A Controller owns three grids. The read goroutine of the RPC connection
// mutates the "writing" grid as redraw events arrive. On flush the writing
// grid is published as the "complete" grid with an atomic exchange and the
// previous complete grid becomes the new writing grid. A presentation
// goroutine calls GlobalGrid at any time to obtain the newest complete grid
// without blocking and without ever observing a half-applied update.
//
// Only the global grid (id 1) is supported; ext_multigrid is never requested.
package ui

package ui

// Window receives notifications about UI state changes. Methods are called
// from the connection's read goroutine and must not block.
type Window interface {
	// Redraw is called after a flush when a new grid is ready.
	Redraw()
	// OptionsSet is called when one of the ext_* options changed.
	OptionsSet()
	// FontSet is called when guifont changed.
	FontSet()
	// ShowtablineSet is called when showtabline changed.
	ShowtablineSet()
	// TitleSet is called when the title changed.
	TitleSet()
	// TablineUpdate is called when the tab pages or the current tab changed.
	TablineUpdate()
	// Close is called when Neovim exits.
	Close()
	// Shutdown is called once the connection has been torn down.
	Shutdown()
}

// NopWindow ignores every notification.
type NopWindow struct{}

func (NopWindow) Redraw()         {}
func (NopWindow) OptionsSet()     {}
func (NopWindow) FontSet()        {}
func (NopWindow) ShowtablineSet() {}
func (NopWindow) TitleSet()       {}
func (NopWindow) TablineUpdate()  {}
func (NopWindow) Close()          {}
func (NopWindow) Shutdown()       {}

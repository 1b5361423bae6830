// Package config loads the nvgrid configuration.
//
// Configuration comes from three layers, higher layers overriding lower:
//
//  1. Built-in defaults (Default)
//  2. The TOML file, by default $XDG_CONFIG_HOME/nvgrid/config.toml
//  3. NVGRID_* environment variables
//
// Command line flags are applied on top by the caller.
//
// # Configuration File
//
//	[nvim]
//	path = "nvim"
//	args = ["--embed"]
//	listen = ""            # connect to a running instance instead
//
//	[ui]
//	width = 0              # 0 uses the terminal size
//	height = 0
//	attach_timeout = "5s"
//	ext_tabline = false
//
//	[rpc]
//	read_buffer_size = 16384
//	write_buffer_capacity = 65536
//	request_timeout = "5s"
//	mode_timeout = "100ms"
//
//	[log]
//	level = "info"
//	file = ""
//
// A missing file is not an error. Unknown keys are, so typos are reported
// with their position.
//
// # Error Handling
//
//   - ParseError: the file is not valid TOML or a value has the wrong type
//   - ValidationError: a value is out of range; Validate joins all of them
package config

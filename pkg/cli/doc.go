// Package cli implements the scriptd command-line interface.
//
// Commands:
//
//	serve    run the server until interrupted
//	render   execute one script and print its output
//	check    parse scripts and report syntax errors
//	init     write a starter configuration
//	version  print build information
package cli

// Package cmd implements the subcommands of the formula command line.
//
// Each command is a [github.com/alecthomas/kong] command struct whose Run
// method receives the process context and the kong context, and writes its
// output to the kong context's stdout.
package cmd

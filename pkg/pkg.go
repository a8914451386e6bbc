// Package pkg holds module-wide metadata and the filesystem locations used by
// the formula command.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the module, embedded at build time.
var Version = strings.TrimSpace(version)

const (
	// Name is the command name. It appears in help text and default paths.
	Name = "formula"
	// Description summarizes the command in help output.
	Description = "Evaluate, format and explore arithmetic and logical formulas"
)

// AuthorInfo identifies an author of the module.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the module authors.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}

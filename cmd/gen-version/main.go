// Command-line code generation for git-derived version information.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// Name of file to output with Go version code
	outputfile = flag.String("o", "", "")

	// Package of the generated file.
	pkg = flag.String("package", "planeio", "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
gen-version calls git to generate Go code with source code version info.

Usage: gen-version [-package planeio] -o version_git.go

      -package    =string   Package clause of the generated file.
  -h, -help       (flag)    Show help message

`

const code = `// Code generated by gen-version; DO NOT EDIT.

package %s

func init() {
	gitVersion = %q
}
`

// describe returns the git description of the working tree, or "notag".
func describe(gitPath string) string {
	out, err := exec.Command(gitPath, "describe", "--abbrev=5", "--tags", "--dirty").Output()
	if err != nil {
		return "notag"
	}
	return strings.TrimSpace(string(out))
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if len(*outputfile) < 4 {
		fmt.Printf("The %q is required for this program\n", "-o foo.go")
		os.Exit(1)
	}

	// Make sure we have git
	gitPath, err := exec.LookPath("git")
	if err != nil {
		fmt.Printf("Unable to find git command; alter PATH?\nError: %v\n", err)
		os.Exit(1)
	}

	// Inject the version string into Go code that gets written to desired location.
	goCode := fmt.Sprintf(code, *pkg, describe(gitPath))
	if err := os.WriteFile(*outputfile, []byte(goCode), 0644); err != nil {
		fmt.Printf("Error save go code: %v\n", err)
		os.Exit(1)
	}
}

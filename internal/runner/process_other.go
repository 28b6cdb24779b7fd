//go:build !unix

package runner

import "os/exec"

// configureProcessGroup keeps exec's default of killing the child only
func configureProcessGroup(*exec.Cmd) {}

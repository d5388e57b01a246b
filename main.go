// SPDX-License-Identifier: MPL-2.0

package main

import (
	"runtime"

	"github.com/invowk/webproc/cmd/webproc"
)

// Native toolkits on some platforms only accept calls from the main
// thread; keep the main goroutine on it.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}

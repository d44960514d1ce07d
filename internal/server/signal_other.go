//go:build !unix

package server

import (
	"errors"
	"os"
)

var errSignalsUnsupported = errors.New("port reclamation is not supported on this platform")

func terminateProcess(pid int) error {
	return errSignalsUnsupported
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}

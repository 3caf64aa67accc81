//go:build windows

package main

import "os"

func registerTerminalResize(chan<- os.Signal) {}

func unregisterTerminalResize(chan<- os.Signal) {}

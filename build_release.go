//go:build !dev

package main

const debugBuild = false

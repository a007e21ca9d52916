//go:build dev

package main

// debugBuild is true for `wails dev` builds, which set the dev tag
const debugBuild = true

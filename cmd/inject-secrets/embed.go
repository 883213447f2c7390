package main

import _ "embed"

// hookScript is the PlatformIO extra script that registers this binary as a
// pre-action of the "buildprog" target. Printed by -print-hook.
//
//go:embed pre_build.py
var hookScript []byte

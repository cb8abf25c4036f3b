// Package main is the entry point for the piutop CLI tool, which aggregates
// Pump It Up result feeds into queryable leaderboards and player profiles.
package main

import "github.com/apetrov-dev/piutop/cmd"

func main() {
	cmd.Execute()
}

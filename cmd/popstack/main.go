// Package main provides the CLI entrypoint for popstack.
package main

func main() {
	Execute()
}

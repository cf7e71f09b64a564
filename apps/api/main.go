package main

// start is provided by main_manual.go by default; build with `-tags dig`
// to wire dependencies through the dig container instead.
func main() {
	start()
}

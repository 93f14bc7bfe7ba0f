package main

import "github.com/ValentinKolb/climastro/cmd"

func main() {
	cmd.Execute()
}

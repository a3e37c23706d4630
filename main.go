package main

import "github.com/wcd-oss/icu-oneshot/cmd"

func main() {
	cmd.Execute()
}

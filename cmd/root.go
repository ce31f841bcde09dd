package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "glowpress"}

	root.AddCommand(serveCMD(), runCMD(), indexCMD())
	_ = root.Execute()
}

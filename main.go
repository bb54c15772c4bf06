// pdfrag is a retrieval-augmented chat backend for uploaded PDF documents.
package main

import (
	"context"
	"fmt"
	"os"

	"pdf-rag-chat/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Command stockctl herramientas de operación: barrido puntual, publicación de alertas,
// migraciones y emisión de tokens administrativos.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

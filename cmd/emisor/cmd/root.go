package cmd

import (
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "emisor",
	Short: "Motor de emisión de comprobantes de pago electrónicos (SUNAT)",
	Long: `emisor transforma un comprobante normalizado en un XML UBL 2.1 firmado,
lo empaqueta y lo transmite según la estrategia configurada (MOCK, HTTP o
SUNAT), devolviendo el resultado de emisión con el CDR decodificado.

La estrategia y sus parámetros se leen de variables de entorno
(CPE_PROVIDER, CPE_HTTP_URL, SUNAT_CPE_ENV, ...) o de un archivo .env.

Ejemplos:
  emisor emit --input solicitud.json
  emisor emit --input solicitud.json --env PROD
  CPE_PROVIDER=MOCK emisor emit --input solicitud.json`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute punto de entrada de la CLI.
func Execute() error {
	return rootCmd.Execute()
}

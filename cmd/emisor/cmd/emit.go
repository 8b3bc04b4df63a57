package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/facturape/emisor-cpe/internal/application/emission"
	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/cpehttp"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat"
	"github.com/facturape/emisor-cpe/pkg/config"
	"github.com/facturape/emisor-cpe/pkg/logger"
)

var (
	inputFile   string
	envOverride string
)

// emitRequest solicitud de emisión tal como la entrega la capa externa:
// negocio, comprobante, credencial SOL desencriptada y certificado.
type emitRequest struct {
	Business *cpe.BusinessRecord   `json:"business"`
	Invoice  *cpe.InvoiceRecord    `json:"invoice"`
	SOL      cpe.SOLCredential     `json:"sol"`
	Cert     cpe.CertificateBundle `json:"cert"`
	Env      string                `json:"env"`
}

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Emite un comprobante leído de un archivo JSON",
	Long: `Lee una solicitud {business, invoice, sol, cert, env} en JSON, ejecuta el
pipeline de emisión con la estrategia configurada e imprime el
EmissionResult. Usa --input - para leer de stdin.`,
	RunE: runEmit,
}

func init() {
	rootCmd.AddCommand(emitCmd)

	emitCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Archivo JSON con la solicitud de emisión (- para stdin)")
	emitCmd.Flags().StringVar(&envOverride, "env", "", "Override del ambiente SUNAT para esta emisión (BETA o PROD)")
	_ = emitCmd.MarkFlagRequired("input")
}

func runEmit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	req, err := readRequest(inputFile)
	if err != nil {
		return err
	}
	if envOverride != "" {
		req.Env = envOverride
	}

	tx, err := buildTransmitter(cfg, log)
	if err != nil {
		return err
	}

	orchestrator := emission.NewOrchestrator(tx, log)
	result, err := orchestrator.Emit(cmd.Context(), emission.Request{
		Business: req.Business,
		Invoice:  req.Invoice,
		SOL:      req.SOL,
		Cert:     req.Cert,
		Env:      req.Env,
	})
	if err != nil {
		// El resultado de error también se imprime para que el llamador
		// lo persista; el proceso termina con código distinto de cero
		printResult(emission.ErrorResult(tx.Provider(), err))
		return err
	}

	printResult(result)
	return nil
}

func readRequest(path string) (*emitRequest, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("abrir solicitud: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var req emitRequest
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		return nil, fmt.Errorf("decodificar solicitud JSON: %w", err)
	}
	return &req, nil
}

func buildTransmitter(cfg *config.Config, log *logger.Logger) (emission.Transmitter, error) {
	switch strings.ToUpper(cfg.CPE.Provider) {
	case "", "MOCK":
		return emission.NewMockTransmitter(), nil
	case "HTTP":
		return cpehttp.NewTransmitter(cpehttp.Config{
			URL:     cfg.CPE.HTTPURL,
			Token:   cfg.CPE.HTTPToken,
			APIKey:  cfg.CPE.HTTPAPIKey,
			Timeout: cfg.CPE.HTTPTimeout,
		}, log), nil
	case "SUNAT":
		return sunat.NewTransmitter(sunat.SOAPConfig{
			DefaultEnv: cfg.CPE.SUNATEnv,
			Timeout:    cfg.CPE.SOAPTimeout,
		}, log), nil
	default:
		return nil, fmt.Errorf("proveedor CPE no soportado: %s", cfg.CPE.Provider)
	}
}

func printResult(result *cpe.EmissionResult) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(result)
}

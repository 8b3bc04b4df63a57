package emission

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/pkg/logger"
)

// Request insumos crudos de una emisión, tal como llegan del llamador: el
// registro del negocio, el comprobante, la credencial SOL desencriptada y
// el certificado digital. El material de credenciales vive solo durante la
// llamada y jamás se registra en logs.
type Request struct {
	Business *cpe.BusinessRecord
	Invoice  *cpe.InvoiceRecord
	SOL      cpe.SOLCredential
	Cert     cpe.CertificateBundle
	Env      string // override por llamada del ambiente SUNAT
}

// Orchestrator ejecuta el pipeline NORMALIZING → ... → DONE con corte
// inmediato ante la primera falla: no hay reintentos dentro de una misma
// emisión, esa decisión es del llamador.
type Orchestrator struct {
	tx  Transmitter
	log *logger.Logger
}

// NewOrchestrator crea el orquestador con la estrategia ya seleccionada
// por configuración.
func NewOrchestrator(tx Transmitter, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{tx: tx, log: log}
}

// Emit procesa exactamente un comprobante y devuelve el resultado para que
// el llamador lo persista. Cualquier falla de etapa aborta y devuelve el
// error de origen con su clase de estado.
func (o *Orchestrator) Emit(ctx context.Context, req Request) (*cpe.EmissionResult, error) {
	emissionID := uuid.NewString()
	ctx = ContextWithEmissionID(ctx, emissionID)
	zl := o.log.With().
		Str("emission_id", emissionID).
		Str("provider", string(o.tx.Provider())).
		Logger()

	zl.Info().Str("stage", string(cpe.StageNormalizing)).Msg("normalizando comprobante")
	inv, err := cpe.Normalize(req.Business, req.Invoice)
	if err != nil {
		zl.Warn().
			Str("stage", string(cpe.StageOf(err))).
			Int("status", cpe.StatusOf(err)).
			Msg(err.Error())
		return nil, err
	}

	zl.Info().
		Str("stage", string(cpe.StageTransmitting)).
		Str("documento", inv.Serie+"-"+inv.Numero).
		Msg("delegando a la estrategia de transmisión")

	result, err := o.tx.Transmit(ctx, &cpe.Emission{
		Invoice: inv,
		SOL:     req.SOL,
		Cert:    req.Cert,
		Env:     req.Env,
	})
	if err != nil {
		zl.Error().
			Str("stage", string(cpe.StageOf(err))).
			Int("status", cpe.StatusOf(err)).
			Msg(err.Error())
		return nil, err
	}

	zl.Info().
		Str("stage", string(cpe.StageDone)).
		Str("status", string(result.Status)).
		Msg("emisión completada")
	return result, nil
}

// ErrorResult construye el EmissionResult persistible de una emisión
// fallida. El mensaje hacia el usuario conserva solo la clase de estado y
// el texto del error; el payload crudo queda en auditoría del lado servidor.
func ErrorResult(provider cpe.Provider, err error) *cpe.EmissionResult {
	return &cpe.EmissionResult{
		Status:   cpe.StatusError,
		Provider: provider,
		Raw: map[string]any{
			"error":  err.Error(),
			"status": cpe.StatusOf(err),
			"stage":  string(cpe.StageOf(err)),
		},
	}
}

package sunat

import (
	"context"
	"errors"
	"strings"

	"github.com/facturape/emisor-cpe/internal/application/emission"
	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat/signer"
	"github.com/facturape/emisor-cpe/pkg/logger"
)

// Transmitter estrategia de autoridad: compone construcción del XML, firma,
// empaquetado, envío SOAP y decodificación del CDR contra SUNAT.
type Transmitter struct {
	builder *XMLBuilderService
	signer  *signer.Service
	soap    *SOAPClient
	log     *logger.Logger
}

// NewTransmitter crea la estrategia SUNAT.
func NewTransmitter(soapCfg SOAPConfig, log *logger.Logger) *Transmitter {
	if log == nil {
		log = logger.Nop()
	}
	return &Transmitter{
		builder: NewXMLBuilderService(),
		signer:  signer.NewService(),
		soap:    NewSOAPClient(soapCfg),
		log:     log,
	}
}

// Provider implementa emission.Transmitter.
func (t *Transmitter) Provider() cpe.Provider {
	return cpe.ProviderSUNAT
}

// Transmit implementa emission.Transmitter. Ejecuta las etapas en secuencia
// con corte inmediato; la credencial extraída vive solo dentro de esta
// llamada.
func (t *Transmitter) Transmit(ctx context.Context, em *cpe.Emission) (*cpe.EmissionResult, error) {
	zl := t.log.With().
		Str("emission_id", emission.EmissionIDFromContext(ctx)).
		Str("documento", em.Invoice.Serie+"-"+em.Invoice.Numero).
		Logger()

	if strings.TrimSpace(em.SOL.RUC) == "" || strings.TrimSpace(em.SOL.SOLUser) == "" || em.SOL.SOLPassword == "" {
		return nil, cpe.NewValidationError("faltan credenciales SOL para la emisión SUNAT").WithStage(cpe.StageTransmitting)
	}
	if em.Cert.PFXBase64 == "" || em.Cert.Passphrase == "" {
		return nil, cpe.NewValidationError("falta el certificado digital para la emisión SUNAT").WithStage(cpe.StageTransmitting)
	}

	zl.Info().Str("stage", string(cpe.StageBuilding)).Msg("construyendo XML UBL")
	xmlBytes, err := t.builder.Build(em.Invoice)
	if err != nil {
		return nil, err
	}

	zl.Info().Str("stage", string(cpe.StageSigning)).Msg("extrayendo credencial y firmando")
	cred, err := signer.ExtractCredential(em.Cert.PFXBase64, em.Cert.Passphrase)
	if err != nil {
		return nil, tagStage(err, cpe.StageSigning)
	}
	signedXML, err := t.signer.Sign(xmlBytes, cred)
	if err != nil {
		return nil, err
	}

	zl.Info().Str("stage", string(cpe.StagePackaging)).Msg("empaquetando ZIP")
	xmlName, zipName := Filenames(em.SOL.RUC, em.Invoice.DocumentTypeCode, em.Invoice.Serie, em.Invoice.Numero)
	zipBase64, err := CompressToZipBase64(xmlName, signedXML)
	if err != nil {
		return nil, err
	}

	zl.Info().Str("stage", string(cpe.StageTransmitting)).Str("env", em.Env).Msg("enviando sendBill")
	resp, err := t.soap.SendBill(ctx, &SendBillRequest{
		RUC:         em.SOL.RUC,
		SOLUser:     em.SOL.SOLUser,
		SOLPassword: em.SOL.SOLPassword,
		ZipFilename: zipName,
		ZipBase64:   zipBase64,
		Env:         em.Env,
	})
	if err != nil {
		return nil, err
	}

	zl.Info().Str("stage", string(cpe.StageDecoding)).Msg("decodificando CDR")
	meta := DecodeCDR(resp.CDRZipBase64)

	var env any
	if em.Env != "" {
		env = em.Env
	}
	cdrZip := resp.CDRZipBase64
	return &cpe.EmissionResult{
		Status:   cpe.StatusFromCode(meta.Code),
		Provider: cpe.ProviderSUNAT,
		Ticket:   nil,
		Receipt: cpe.Receipt{
			Code:        meta.Code,
			Description: meta.Description,
			ZipBase64:   &cdrZip,
		},
		Raw: map[string]any{
			"soap": resp.RawXML,
			"env":  env,
		},
	}, nil
}

// tagStage fija la etapa de origen si el error aún no la declara.
func tagStage(err error, stage cpe.Stage) error {
	var cpeErr *cpe.Error
	if errors.As(err, &cpeErr) && cpeErr.Stage == "" {
		cpeErr.Stage = stage
	}
	return err
}

var _ emission.Transmitter = (*Transmitter)(nil)

package sunat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat"
	"github.com/facturape/emisor-cpe/pkg/logger"
)

func TestTransmitterProvider(t *testing.T) {
	tx := sunat.NewTransmitter(sunat.SOAPConfig{}, logger.Nop())
	assert.Equal(t, cpe.ProviderSUNAT, tx.Provider())
}

func TestTransmitterSinCredencialesSOL(t *testing.T) {
	tx := sunat.NewTransmitter(sunat.SOAPConfig{}, logger.Nop())
	em := &cpe.Emission{
		Invoice: buildCanonicalInvoice(buildTestLine("Item A", "20", "3.6")),
		Cert:    cpe.CertificateBundle{PFXBase64: "QUJD", Passphrase: "x"},
	}

	_, err := tx.Transmit(context.Background(), em)
	require.Error(t, err)
	assert.Equal(t, 400, cpe.StatusOf(err))
	assert.Contains(t, err.Error(), "SOL")
}

func TestTransmitterSinCertificado(t *testing.T) {
	tx := sunat.NewTransmitter(sunat.SOAPConfig{}, logger.Nop())
	em := &cpe.Emission{
		Invoice: buildCanonicalInvoice(buildTestLine("Item A", "20", "3.6")),
		SOL:     cpe.SOLCredential{RUC: testRUC, SOLUser: "MODDATOS", SOLPassword: "moddatos"},
	}

	_, err := tx.Transmit(context.Background(), em)
	require.Error(t, err)
	assert.Equal(t, 400, cpe.StatusOf(err))
	assert.Contains(t, err.Error(), "certificado")
}

func TestTransmitterCredencialCorrupta(t *testing.T) {
	// El pipeline corta en la extracción de credencial, antes de tocar la red
	tx := sunat.NewTransmitter(sunat.SOAPConfig{}, logger.Nop())
	em := &cpe.Emission{
		Invoice: buildCanonicalInvoice(buildTestLine("Item A", "20", "3.6")),
		SOL:     cpe.SOLCredential{RUC: testRUC, SOLUser: "MODDATOS", SOLPassword: "moddatos"},
		Cert:    cpe.CertificateBundle{PFXBase64: "QUJD", Passphrase: "incorrecta"},
	}

	_, err := tx.Transmit(context.Background(), em)
	require.Error(t, err)
	assert.Equal(t, 400, cpe.StatusOf(err))
	assert.Equal(t, cpe.StageSigning, cpe.StageOf(err))
}

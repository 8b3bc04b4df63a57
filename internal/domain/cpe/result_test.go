package cpe_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

func strPtr(s string) *string { return &s }

func TestAcceptedSoloConCodigoCero(t *testing.T) {
	// La aceptación es comparación textual exacta contra "0"
	assert.True(t, cpe.Accepted(strPtr("0")))
	assert.True(t, cpe.Accepted(strPtr(" 0 ")))

	assert.False(t, cpe.Accepted(strPtr("01")))
	assert.False(t, cpe.Accepted(strPtr("4000")))
	assert.False(t, cpe.Accepted(strPtr("")))
	assert.False(t, cpe.Accepted(nil))
}

func TestStatusFromCode(t *testing.T) {
	assert.Equal(t, cpe.StatusAccepted, cpe.StatusFromCode(strPtr("0")))
	assert.Equal(t, cpe.StatusRejected, cpe.StatusFromCode(strPtr("2324")))
	assert.Equal(t, cpe.StatusRejected, cpe.StatusFromCode(nil))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 400, cpe.StatusOf(cpe.NewValidationError("falta serie")))
	assert.Equal(t, 400, cpe.StatusOf(cpe.NewCredentialError("contenedor inválido")))
	assert.Equal(t, 500, cpe.StatusOf(cpe.NewSigningError("sin placeholder")))
	assert.Equal(t, 502, cpe.StatusOf(cpe.NewTransportError(502, "falla", "")))
	assert.Equal(t, 504, cpe.StatusOf(cpe.NewTimeoutError("plazo excedido")))

	// Errores ajenos al pipeline degradan a 500
	assert.Equal(t, 500, cpe.StatusOf(errors.New("otra cosa")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, cpe.IsTimeout(cpe.NewTimeoutError("plazo excedido")))
	assert.False(t, cpe.IsTimeout(cpe.NewTransportError(500, "falla", "")))
	assert.False(t, cpe.IsTimeout(errors.New("otra cosa")))
}

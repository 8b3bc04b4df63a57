// Package emission orquesta el pipeline de emisión de CPE como máquina de
// estados y define el puerto Transmitter con sus estrategias
// intercambiables (mock, HTTP genérico, SUNAT).
package emission

import (
	"context"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// Transmitter estrategia de transmisión de un comprobante. Las tres
// variantes consumen el mismo comprobante canónico y producen el mismo
// EmissionResult; el llamador solo las distingue por el campo provider.
type Transmitter interface {
	Transmit(ctx context.Context, em *cpe.Emission) (*cpe.EmissionResult, error)
	Provider() cpe.Provider
}

type emissionIDKey struct{}

// ContextWithEmissionID propaga el identificador de correlación de la
// emisión hacia las estrategias para que sus logs queden enlazados.
func ContextWithEmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, emissionIDKey{}, id)
}

// EmissionIDFromContext recupera el identificador de correlación; cadena
// vacía si no hay ninguno.
func EmissionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(emissionIDKey{}).(string); ok {
		return id
	}
	return ""
}

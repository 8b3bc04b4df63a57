package emission

import (
	"context"
	"fmt"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// MockTransmitter estrategia sin red: siempre reporta aceptación. Útil en
// desarrollo y en ambientes donde aún no hay credenciales reales.
type MockTransmitter struct{}

// NewMockTransmitter crea la estrategia mock.
func NewMockTransmitter() *MockTransmitter {
	return &MockTransmitter{}
}

// Provider implementa Transmitter.
func (m *MockTransmitter) Provider() cpe.Provider {
	return cpe.ProviderMock
}

// Transmit implementa Transmitter.
func (m *MockTransmitter) Transmit(_ context.Context, em *cpe.Emission) (*cpe.EmissionResult, error) {
	ticket := fmt.Sprintf("MOCK-%s-%s", em.Invoice.Serie, em.Invoice.Numero)
	code := "0"
	description := "Aceptado en entorno mock"

	return &cpe.EmissionResult{
		Status:   cpe.StatusAccepted,
		Provider: cpe.ProviderMock,
		Ticket:   &ticket,
		Receipt: cpe.Receipt{
			Code:        &code,
			Description: &description,
			ZipBase64:   nil,
		},
		Raw: map[string]any{
			"mock":     true,
			"ticket":   ticket,
			"accepted": true,
		},
	}, nil
}

var _ Transmitter = (*MockTransmitter)(nil)

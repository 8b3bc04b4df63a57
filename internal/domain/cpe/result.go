package cpe

import "strings"

// Status resultado final de una emisión.
type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusError    Status = "ERROR"
)

// Provider estrategia de transmisión que produjo el resultado.
type Provider string

const (
	ProviderMock Provider = "MOCK"
	ProviderHTTP Provider = "HTTP"
	// ProviderSUNAT es la variante de autoridad: SOAP directo contra SUNAT.
	ProviderSUNAT Provider = "SUNAT"
)

// Stage estado del pipeline de emisión.
type Stage string

const (
	StageNormalizing  Stage = "NORMALIZING"
	StageBuilding     Stage = "BUILDING"
	StageSigning      Stage = "SIGNING"
	StagePackaging    Stage = "PACKAGING"
	StageTransmitting Stage = "TRANSMITTING"
	StageDecoding     Stage = "DECODING"
	StageDone         Stage = "DONE"
	StageError        Stage = "ERROR"
)

// Receipt constancia de recepción (CDR). Código y descripción pueden ser
// irrecuperables aunque el archivo esté presente.
type Receipt struct {
	Code        *string `json:"code"`
	Description *string `json:"description"`
	ZipBase64   *string `json:"zipBase64"`
}

// EmissionResult resultado de una emisión. Se crea una vez por llamada y no
// se muta después; la persistencia es responsabilidad del llamador.
type EmissionResult struct {
	Status   Status   `json:"status"`
	Provider Provider `json:"provider"`
	Ticket   *string  `json:"ticket"`
	Receipt  Receipt  `json:"cdr"`
	Raw      any      `json:"raw"`
}

// Accepted aplica la regla de aceptación de la autoridad: el código del CDR
// debe ser exactamente la cadena "0" (comparación textual, no numérica).
func Accepted(code *string) bool {
	return code != nil && strings.TrimSpace(*code) == "0"
}

// StatusFromCode traduce el código del CDR al estado final.
func StatusFromCode(code *string) Status {
	if Accepted(code) {
		return StatusAccepted
	}
	return StatusRejected
}

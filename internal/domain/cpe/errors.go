package cpe

import "errors"

// Error error del pipeline de emisión, con clase de estado al estilo HTTP
// para que el llamador distinga fallas del cliente (4xx) de fallas del
// servidor (5xx). Raw conserva el cuerpo crudo del protocolo solo para
// auditoría; nunca se devuelve al usuario final.
type Error struct {
	Status  int
	Stage   Stage
	Message string
	Raw     string
	Timeout bool
}

func (e *Error) Error() string { return e.Message }

// WithStage marca la etapa del pipeline donde se originó el error.
func (e *Error) WithStage(stage Stage) *Error {
	e.Stage = stage
	return e
}

// StageOf devuelve la etapa donde falló el pipeline, ERROR si no se conoce.
func StageOf(err error) Stage {
	var cpeErr *Error
	if errors.As(err, &cpeErr) && cpeErr.Stage != "" {
		return cpeErr.Stage
	}
	return StageError
}

// NewValidationError campo canónico ausente o inválido (falla del cliente).
func NewValidationError(message string) *Error {
	return &Error{Status: 400, Message: message}
}

// NewCredentialError contenedor o contraseña inválidos (falla del cliente).
func NewCredentialError(message string) *Error {
	return &Error{Status: 400, Message: message}
}

// NewSigningError documento malformado o falla de la librería de firma.
func NewSigningError(message string) *Error {
	return &Error{Status: 500, Message: message}
}

// NewPackagingError falla al armar el paquete ZIP del comprobante.
func NewPackagingError(message string) *Error {
	return &Error{Status: 500, Message: message}
}

// NewTransportError falla de transporte con el estado y cuerpo crudo
// recibidos del protocolo.
func NewTransportError(status int, message, raw string) *Error {
	return &Error{Status: status, Message: message, Raw: raw}
}

// NewTimeoutError la llamada excedió su plazo; se distingue del resto de
// fallas de transporte.
func NewTimeoutError(message string) *Error {
	return &Error{Status: 504, Message: message, Timeout: true}
}

// StatusOf devuelve la clase de estado del error, 500 si no la declara.
func StatusOf(err error) int {
	var cpeErr *Error
	if errors.As(err, &cpeErr) {
		return cpeErr.Status
	}
	return 500
}

// IsTimeout reporta si el error corresponde a un plazo excedido.
func IsTimeout(err error) bool {
	var cpeErr *Error
	return errors.As(err, &cpeErr) && cpeErr.Timeout
}

// Package cpehttp implementa la estrategia de transmisión HTTP genérica:
// el comprobante normalizado viaja como JSON a un proveedor OSE/PSE
// configurado y la respuesta se mapea al EmissionResult común.
package cpehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/facturape/emisor-cpe/internal/application/emission"
	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/pkg/logger"
	"github.com/facturape/emisor-cpe/pkg/sunat"
)

// DefaultTimeout plazo por defecto de la llamada al proveedor.
const DefaultTimeout = 45 * time.Second

const maxResponseBytes = 10 << 20

// Orden de precedencia de las llaves candidatas por campo lógico de la
// respuesta del proveedor.
var (
	ticketKeys      = []string{"ticket", "externalId", "id"}
	codeKeys        = []string{"code", "cdrCode", "responseCode"}
	descriptionKeys = []string{"description", "cdrDescription", "responseDescription", "message"}
	zipKeys         = []string{"zipBase64", "cdrZipBase64", "cdr"}
	errorKeys       = []string{"error", "message"}
)

// Config parámetros del proveedor HTTP.
type Config struct {
	URL     string
	Token   string // opcional, va como Authorization: Bearer
	APIKey  string // opcional, va como x-api-key
	Timeout time.Duration
}

// Transmitter estrategia HTTP genérica.
type Transmitter struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewTransmitter crea la estrategia HTTP.
func NewTransmitter(cfg Config, log *logger.Logger) *Transmitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Transmitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Provider implementa emission.Transmitter.
func (t *Transmitter) Provider() cpe.Provider {
	return cpe.ProviderHTTP
}

// Transmit implementa emission.Transmitter.
func (t *Transmitter) Transmit(ctx context.Context, em *cpe.Emission) (*cpe.EmissionResult, error) {
	if strings.TrimSpace(t.cfg.URL) == "" {
		return nil, cpe.NewTransportError(500, "falta configurar la URL del proveedor CPE", "").WithStage(cpe.StageTransmitting)
	}

	body, err := json.Marshal(buildPayload(em.Invoice))
	if err != nil {
		return nil, cpe.NewTransportError(500, "serializar payload del proveedor: "+err.Error(), "").WithStage(cpe.StageTransmitting)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, cpe.NewTransportError(500, "construir petición al proveedor: "+err.Error(), "").WithStage(cpe.StageTransmitting)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(t.cfg.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if apiKey := strings.TrimSpace(t.cfg.APIKey); apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	t.log.Info().
		Str("emission_id", emission.EmissionIDFromContext(ctx)).
		Str("stage", string(cpe.StageTransmitting)).
		Str("documento", em.Invoice.Serie+"-"+em.Invoice.Numero).
		Msg("enviando comprobante al proveedor HTTP")

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, cpe.NewTimeoutError("el proveedor CPE no respondió dentro del plazo").WithStage(cpe.StageTransmitting)
		}
		return nil, cpe.NewTransportError(502, "falla de conexión con el proveedor CPE", "").WithStage(cpe.StageTransmitting)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, cpe.NewTransportError(502, "leer respuesta del proveedor CPE", "").WithStage(cpe.StageTransmitting)
	}

	// Una respuesta que no es JSON se tolera como objeto vacío
	data := map[string]any{}
	_ = json.Unmarshal(raw, &data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := lookupString(data, errorKeys)
		if message == nil {
			generic := "error del proveedor CPE"
			message = &generic
		}
		return nil, cpe.NewTransportError(resp.StatusCode, *message, string(raw)).WithStage(cpe.StageTransmitting)
	}

	return mapResponse(data), nil
}

// mapResponse traduce la respuesta JSON del proveedor al EmissionResult
// común siguiendo las listas de precedencia de llaves.
func mapResponse(data map[string]any) *cpe.EmissionResult {
	// El sub-objeto cdr es opcional; en su ausencia los campos se buscan
	// en la raíz de la respuesta
	cdrSource := data
	if sub, ok := data["cdr"].(map[string]any); ok {
		cdrSource = sub
	}

	return &cpe.EmissionResult{
		Status:   normalizeStatus(data),
		Provider: cpe.ProviderHTTP,
		Ticket:   lookupString(data, ticketKeys),
		Receipt: cpe.Receipt{
			Code:        lookupString(cdrSource, codeKeys),
			Description: lookupString(cdrSource, descriptionKeys),
			ZipBase64:   lookupString(cdrSource, zipKeys),
		},
		Raw: data,
	}
}

// normalizeStatus interpreta el estado textual del proveedor (en español o
// inglés) y degrada al booleano accepted/ok; en la duda, rechazado.
func normalizeStatus(data map[string]any) cpe.Status {
	if status, ok := data["status"].(string); ok {
		value := strings.ToUpper(strings.TrimSpace(status))
		if strings.Contains(value, "ACEPT") || strings.Contains(value, "ACCEPT") {
			return cpe.StatusAccepted
		}
		if strings.Contains(value, "RECH") || strings.Contains(value, "REJECT") {
			return cpe.StatusRejected
		}
	}
	if accepted, ok := data["accepted"].(bool); ok {
		if accepted {
			return cpe.StatusAccepted
		}
		return cpe.StatusRejected
	}
	if okFlag, ok := data["ok"].(bool); ok && okFlag {
		return cpe.StatusAccepted
	}
	return cpe.StatusRejected
}

// lookupString resuelve la primera llave presente con valor string no vacío.
func lookupString(data map[string]any, keys []string) *string {
	for _, key := range keys {
		if value, ok := data[key].(string); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return &trimmed
			}
		}
	}
	return nil
}

// payload con las llaves que los proveedores integrados esperan
type payload struct {
	DocumentTypeCode string         `json:"documentTypeCode"`
	Issuer           payloadIssuer  `json:"issuer"`
	Invoice          payloadInvoice `json:"invoice"`
}

type payloadIssuer struct {
	RUC          string `json:"ruc"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	Ubigeo       string `json:"ubigeo"`
}

type payloadCustomer struct {
	Name           string `json:"name"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

type payloadTotals struct {
	Subtotal float64 `json:"subtotal"`
	IGV      float64 `json:"igv"`
	Total    float64 `json:"total"`
}

type payloadItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxRate     float64 `json:"taxRate"`
	Subtotal    float64 `json:"subtotal"`
	IGV         float64 `json:"igv"`
	Total       float64 `json:"total"`
}

type payloadInvoice struct {
	ID           string          `json:"id"`
	DocumentType string          `json:"documentType"`
	Serie        string          `json:"serie"`
	Numero       string          `json:"numero"`
	IssueDate    *string         `json:"issueDate"`
	DueDate      *string         `json:"dueDate"`
	Customer     payloadCustomer `json:"customer"`
	Totals       payloadTotals   `json:"totals"`
	Items        []payloadItem   `json:"items"`
}

func buildPayload(inv *cpe.CanonicalInvoice) payload {
	items := make([]payloadItem, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		items = append(items, payloadItem{
			Description: line.Description,
			Quantity:    line.Quantity.InexactFloat64(),
			UnitPrice:   line.UnitPrice.InexactFloat64(),
			TaxRate:     line.TaxRate.InexactFloat64(),
			Subtotal:    line.Subtotal.InexactFloat64(),
			IGV:         line.IGV.InexactFloat64(),
			Total:       line.Total.InexactFloat64(),
		})
	}

	return payload{
		DocumentTypeCode: inv.DocumentTypeCode,
		Issuer: payloadIssuer{
			RUC:          inv.Issuer.RUC,
			Name:         inv.Issuer.Name,
			AddressLine1: inv.Issuer.AddressLine1,
			Ubigeo:       inv.Issuer.Ubigeo,
		},
		Invoice: payloadInvoice{
			ID:           inv.InvoiceID,
			DocumentType: sunat.LabelFromDocType(inv.DocumentTypeCode),
			Serie:        inv.Serie,
			Numero:       inv.Numero,
			IssueDate:    isoDate(inv.IssueDate),
			DueDate:      isoDate(inv.DueDate),
			Customer: payloadCustomer{
				Name:           inv.Customer.Name,
				DocumentType:   inv.Customer.DocumentType,
				DocumentNumber: inv.Customer.DocumentNumber,
			},
			Totals: payloadTotals{
				Subtotal: inv.Totals.Subtotal.InexactFloat64(),
				IGV:      inv.Totals.IGV.InexactFloat64(),
				Total:    inv.Totals.Total.InexactFloat64(),
			},
			Items: items,
		},
	}
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	iso := t.Format(time.RFC3339)
	return &iso
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ emission.Transmitter = (*Transmitter)(nil)

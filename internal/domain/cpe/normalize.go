package cpe

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturape/emisor-cpe/pkg/sunat"
)

// formatos de fecha aceptados desde la capa externa
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize valida y da forma canónica a un registro de negocio más un
// comprobante. Falla con un error de validación que identifica el primer
// campo obligatorio ausente o inválido; no tiene efectos secundarios.
func Normalize(business *BusinessRecord, invoice *InvoiceRecord) (*CanonicalInvoice, error) {
	if business == nil {
		business = &BusinessRecord{}
	}
	if invoice == nil {
		invoice = &InvoiceRecord{}
	}

	docTypeCode := sunat.DocTypeFromLabel(strings.ToUpper(strings.TrimSpace(invoice.DocumentType)))
	if docTypeCode == "" {
		return nil, NewValidationError("tipo de documento no soportado para CPE").WithStage(StageNormalizing)
	}

	issuerRUC := sunat.NormalizeRUC(business.RUC)
	if issuerRUC == "" {
		return nil, NewValidationError("el RUC del emisor es obligatorio").WithStage(StageNormalizing)
	}
	if !sunat.IsValidRUC(issuerRUC) {
		return nil, NewValidationError("el RUC del emisor no es válido").WithStage(StageNormalizing)
	}

	addressLine1 := strings.TrimSpace(business.AddressLine1)
	ubigeo := strings.TrimSpace(business.Ubigeo)
	if addressLine1 == "" || ubigeo == "" {
		return nil, NewValidationError("la dirección del emisor (addressLine1, ubigeo) es obligatoria").WithStage(StageNormalizing)
	}

	serie := strings.ToUpper(strings.TrimSpace(invoice.Serie))
	numero := strings.ToUpper(strings.TrimSpace(invoice.Numero))
	if serie == "" || numero == "" {
		return nil, NewValidationError("la serie y el número del comprobante son obligatorios").WithStage(StageNormalizing)
	}

	if len(invoice.Items) == 0 {
		return nil, NewValidationError("el comprobante requiere al menos una línea de detalle").WithStage(StageNormalizing)
	}

	lines := make([]Line, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, Line{
			Description: strings.TrimSpace(item.Description),
			Quantity:    zeroIfNegative(item.Quantity.Decimal),
			UnitPrice:   zeroIfNegative(item.UnitPrice.Decimal),
			TaxRate:     zeroIfNegative(item.TaxRate.Decimal),
			Subtotal:    zeroIfNegative(item.Subtotal.Decimal),
			IGV:         zeroIfNegative(item.IGV.Decimal),
			Total:       zeroIfNegative(item.Total.Decimal),
		})
	}

	return &CanonicalInvoice{
		DocumentTypeCode: docTypeCode,
		InvoiceID:        strings.TrimSpace(invoice.ID),
		Issuer: Issuer{
			RUC:          issuerRUC,
			Name:         strings.TrimSpace(business.Name),
			AddressLine1: addressLine1,
			Ubigeo:       ubigeo,
		},
		Customer: Customer{
			Name:           strings.TrimSpace(invoice.CustomerName),
			DocumentType:   strings.ToUpper(strings.TrimSpace(invoice.CustomerDocumentType)),
			DocumentNumber: strings.TrimSpace(invoice.CustomerDocumentNumber),
		},
		Serie:     serie,
		Numero:    numero,
		IssueDate: parseDate(invoice.IssueDate),
		DueDate:   parseDate(invoice.DueDate),
		Totals: Totals{
			Subtotal: zeroIfNegative(invoice.Subtotal.Decimal),
			IGV:      zeroIfNegative(invoice.IGV.Decimal),
			Total:    zeroIfNegative(invoice.Total.Decimal),
		},
		Lines: lines,
	}, nil
}

// parseDate devuelve nil cuando la fecha está ausente o no se puede
// interpretar; el builder resuelve la fecha de emisión por defecto.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// zeroIfNegative acota montos a no-negativos según el invariante del modelo.
func zeroIfNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

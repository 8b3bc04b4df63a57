// Package cpe define el modelo canónico de comprobantes de pago
// electrónicos (CPE) y las reglas de normalización y resultado de emisión.
package cpe

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amount envuelve decimal.Decimal con deserialización JSON tolerante:
// valores ausentes, nulos o no numéricos quedan en cero en lugar de fallar,
// para aceptar registros upstream parcialmente poblados.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON acepta números y strings numéricos; cualquier otra cosa es cero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}

// BusinessRecord datos del emisor tal como llegan de la capa externa.
type BusinessRecord struct {
	RUC          string `json:"ruc"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	Ubigeo       string `json:"ubigeo"`
}

// ItemRecord línea de detalle tal como llega de la capa externa.
type ItemRecord struct {
	Description string `json:"description"`
	Quantity    Amount `json:"quantity"`
	UnitPrice   Amount `json:"unitPrice"`
	TaxRate     Amount `json:"taxRate"`
	Subtotal    Amount `json:"subtotal"`
	IGV         Amount `json:"igv"`
	Total       Amount `json:"total"`
}

// InvoiceRecord comprobante tal como llega de la capa externa.
type InvoiceRecord struct {
	ID                     string       `json:"id"`
	DocumentType           string       `json:"documentType"`
	Serie                  string       `json:"serie"`
	Numero                 string       `json:"numero"`
	IssueDate              string       `json:"issueDate"`
	DueDate                string       `json:"dueDate"`
	CustomerName           string       `json:"customerName"`
	CustomerDocumentType   string       `json:"customerDocumentType"`
	CustomerDocumentNumber string       `json:"customerDocumentNumber"`
	Subtotal               Amount       `json:"subtotal"`
	IGV                    Amount       `json:"igv"`
	Total                  Amount       `json:"total"`
	Items                  []ItemRecord `json:"items"`
}

// Issuer datos canónicos del emisor.
type Issuer struct {
	RUC          string
	Name         string
	AddressLine1 string
	Ubigeo       string
}

// Customer datos canónicos del adquirente.
type Customer struct {
	Name           string
	DocumentType   string
	DocumentNumber string
}

// Totals montos agregados del comprobante.
type Totals struct {
	Subtotal decimal.Decimal
	IGV      decimal.Decimal
	Total    decimal.Decimal
}

// Line línea canónica de detalle.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	IGV         decimal.Decimal
	Total       decimal.Decimal
}

// CanonicalInvoice comprobante validado y normalizado. Inmutable una vez
// construido; se arma fresco en cada intento de emisión.
type CanonicalInvoice struct {
	DocumentTypeCode string
	InvoiceID        string
	Issuer           Issuer
	Customer         Customer
	Serie            string
	Numero           string
	IssueDate        *time.Time
	DueDate          *time.Time
	Totals           Totals
	Lines            []Line
}

// SOLCredential credenciales SOL desencriptadas para la autenticación SOAP.
type SOLCredential struct {
	RUC         string `json:"ruc"`
	SOLUser     string `json:"solUser"`
	SOLPassword string `json:"solPassword"`
}

// CertificateBundle contenedor PKCS#12 en base64 más su contraseña.
type CertificateBundle struct {
	PFXBase64  string `json:"pfxBase64"`
	Passphrase string `json:"pfxPassword"`
}

// SigningCredential llave privada y certificado en PEM, extraídos por
// emisión. Solo viven en memoria durante la llamada; nunca se persisten
// ni se registran en logs.
type SigningCredential struct {
	PrivateKeyPEM  []byte
	CertificatePEM []byte
}

// Emission insumos completos de un intento de emisión contra la autoridad.
type Emission struct {
	Invoice *CanonicalInvoice
	SOL     SOLCredential
	Cert    CertificateBundle
	Env     string // BETA o PROD; vacío usa el default configurado
}

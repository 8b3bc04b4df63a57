// Package sunat reúne catálogos y utilidades del estándar SUNAT (Perú)
// compartidos por el dominio y la infraestructura de emisión.
package sunat

// Catálogo 01: tipos de comprobante de pago electrónico.
const (
	DocTypeFactura = "01"
	DocTypeBoleta  = "03"
)

// Catálogo 06: tipos de documento de identidad.
const (
	SchemeDNI    = "1"
	SchemeRUC    = "6"
	SchemeOthers = "0"
)

// Tributo IGV según catálogo 05.
const (
	TaxSchemeIGVID   = "1000"
	TaxSchemeIGVName = "IGV"
	TaxSchemeIGVCode = "VAT"
)

// Catálogo 07: afectación del IGV. 10 = gravado, operación onerosa.
const TaxExemptionGravado = "10"

// Catálogo 16: tipo de precio. 01 = precio unitario (incluye IGV).
const PriceTypeUnitario = "01"

// CurrencyPEN moneda de emisión. El motor solo emite en soles.
const CurrencyPEN = "PEN"

// UnitNIU unidad por defecto para bienes (catálogo de unidades UN/ECE rec 20).
const UnitNIU = "NIU"

// DocTypeFromLabel resuelve la etiqueta del documento a su código de
// catálogo 01. Etiquetas desconocidas devuelven cadena vacía.
func DocTypeFromLabel(label string) string {
	switch label {
	case "FACTURA":
		return DocTypeFactura
	case "BOLETA":
		return DocTypeBoleta
	default:
		return ""
	}
}

// LabelFromDocType operación inversa: código de catálogo 01 a etiqueta.
func LabelFromDocType(code string) string {
	switch code {
	case DocTypeFactura:
		return "FACTURA"
	case DocTypeBoleta:
		return "BOLETA"
	default:
		return ""
	}
}

// CustomerSchemeID resuelve el tipo de documento de identidad del cliente
// al schemeID del catálogo 06.
func CustomerSchemeID(docType string) string {
	switch docType {
	case "RUC":
		return SchemeRUC
	case "DNI":
		return SchemeDNI
	default:
		return SchemeOthers
	}
}

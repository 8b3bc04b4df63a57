// Package sunat implementa la infraestructura de emisión contra SUNAT:
// construcción del XML UBL 2.1, firma enveloped, empaquetado ZIP, envío
// SOAP (sendBill) y decodificación del CDR.
package sunat

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat/signer"
	"github.com/facturape/emisor-cpe/pkg/sunat"
)

// Namespaces oficiales UBL 2.1.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

// SignatureID identificador de firma que exige el esquema de SUNAT: el
// bloque cac:Signature referencia "#SignatureSP" y el firmador emite el
// ds:Signature con ese Id.
const SignatureID = signer.SignatureID

// tasa de IGV por defecto cuando la línea no trae con qué derivarla
var defaultIGVPercent = decimal.NewFromInt(18)

// XMLBuilderService construye el XML UBL 2.1 del comprobante (sin firma).
type XMLBuilderService struct {
	now func() time.Time
}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{now: time.Now}
}

// Build genera el documento Invoice UBL 2.1 en UTF-8. Es determinístico:
// el mismo comprobante produce bytes idénticos (la única entrada externa es
// la fecha de emisión por defecto cuando el comprobante no la trae).
func (s *XMLBuilderService) Build(inv *cpe.CanonicalInvoice) ([]byte, error) {
	if inv == nil {
		return nil, cpe.NewSigningError("comprobante canónico ausente").WithStage(cpe.StageBuilding)
	}
	if inv.Serie == "" || inv.Numero == "" || inv.Issuer.RUC == "" || len(inv.Lines) == 0 {
		// No debería ocurrir después de la normalización
		return nil, cpe.NewSigningError("comprobante canónico incompleto").WithStage(cpe.StageBuilding)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", NsInvoice)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)
	root.CreateAttr("xmlns:ext", NsExt)

	// ext:UBLExtensions siempre como primer hijo: el ExtensionContent vacío
	// es el placeholder donde el firmador inyecta ds:Signature
	exts := root.CreateElement("ext:UBLExtensions")
	ext := exts.CreateElement("ext:UBLExtension")
	ext.CreateElement("ext:ExtensionContent")

	issueDate := s.now().Format("2006-01-02")
	if inv.IssueDate != nil {
		issueDate = inv.IssueDate.Format("2006-01-02")
	}

	writeCbc(root, "cbc:UBLVersionID", "2.1")
	writeCbc(root, "cbc:CustomizationID", "2.0")
	writeCbc(root, "cbc:ID", inv.Serie+"-"+inv.Numero)
	writeCbc(root, "cbc:IssueDate", issueDate)
	if inv.DueDate != nil {
		writeCbc(root, "cbc:DueDate", inv.DueDate.Format("2006-01-02"))
	}
	typeCode := root.CreateElement("cbc:InvoiceTypeCode")
	typeCode.CreateAttr("listID", "0101")
	typeCode.SetText(inv.DocumentTypeCode)
	writeCbc(root, "cbc:DocumentCurrencyCode", sunat.CurrencyPEN)

	s.writeSignatureBlock(root, inv)
	s.writeSupplierParty(root, inv)
	s.writeCustomerParty(root, inv)
	s.writeTaxTotal(root, inv)
	s.writeMonetaryTotal(root, inv)
	for i, line := range inv.Lines {
		s.writeInvoiceLine(root, i+1, line)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// writeSignatureBlock bloque cac:Signature que referencia la firma digital
// por su Id conocido.
func (s *XMLBuilderService) writeSignatureBlock(root *etree.Element, inv *cpe.CanonicalInvoice) {
	sig := root.CreateElement("cac:Signature")
	writeCbc(sig, "cbc:ID", inv.Issuer.RUC)

	party := sig.CreateElement("cac:SignatoryParty")
	ident := party.CreateElement("cac:PartyIdentification")
	writeCbc(ident, "cbc:ID", inv.Issuer.RUC)
	name := party.CreateElement("cac:PartyName")
	writeCbc(name, "cbc:Name", inv.Issuer.Name)

	attach := sig.CreateElement("cac:DigitalSignatureAttachment")
	ref := attach.CreateElement("cac:ExternalReference")
	writeCbc(ref, "cbc:URI", "#"+SignatureID)
}

func (s *XMLBuilderService) writeSupplierParty(root *etree.Element, inv *cpe.CanonicalInvoice) {
	supplier := root.CreateElement("cac:AccountingSupplierParty")
	party := supplier.CreateElement("cac:Party")

	ident := party.CreateElement("cac:PartyIdentification")
	id := ident.CreateElement("cbc:ID")
	id.CreateAttr("schemeID", sunat.SchemeRUC)
	id.SetText(inv.Issuer.RUC)

	legal := party.CreateElement("cac:PartyLegalEntity")
	writeCbc(legal, "cbc:RegistrationName", inv.Issuer.Name)

	addr := legal.CreateElement("cac:RegistrationAddress")
	writeCbc(addr, "cbc:ID", inv.Issuer.Ubigeo)
	writeCbc(addr, "cbc:AddressTypeCode", "0000")
	addrLine := addr.CreateElement("cac:AddressLine")
	writeCbc(addrLine, "cbc:Line", inv.Issuer.AddressLine1)
	country := addr.CreateElement("cac:Country")
	writeCbc(country, "cbc:IdentificationCode", "PE")
}

func (s *XMLBuilderService) writeCustomerParty(root *etree.Element, inv *cpe.CanonicalInvoice) {
	customer := root.CreateElement("cac:AccountingCustomerParty")
	party := customer.CreateElement("cac:Party")

	ident := party.CreateElement("cac:PartyIdentification")
	id := ident.CreateElement("cbc:ID")
	id.CreateAttr("schemeID", sunat.CustomerSchemeID(inv.Customer.DocumentType))
	id.SetText(inv.Customer.DocumentNumber)

	legal := party.CreateElement("cac:PartyLegalEntity")
	writeCbc(legal, "cbc:RegistrationName", inv.Customer.Name)
}

func (s *XMLBuilderService) writeTaxTotal(root *etree.Element, inv *cpe.CanonicalInvoice) {
	taxTotal := root.CreateElement("cac:TaxTotal")
	writeAmount(taxTotal, "cbc:TaxAmount", inv.Totals.IGV)

	sub := taxTotal.CreateElement("cac:TaxSubtotal")
	writeAmount(sub, "cbc:TaxableAmount", inv.Totals.Subtotal)
	writeAmount(sub, "cbc:TaxAmount", inv.Totals.IGV)

	category := sub.CreateElement("cac:TaxCategory")
	writeTaxScheme(category)
}

func (s *XMLBuilderService) writeMonetaryTotal(root *etree.Element, inv *cpe.CanonicalInvoice) {
	total := root.CreateElement("cac:LegalMonetaryTotal")
	writeAmount(total, "cbc:LineExtensionAmount", inv.Totals.Subtotal)
	writeAmount(total, "cbc:TaxInclusiveAmount", inv.Totals.Total)
	writeAmount(total, "cbc:PayableAmount", inv.Totals.Total)
}

func (s *XMLBuilderService) writeInvoiceLine(root *etree.Element, n int, line cpe.Line) {
	el := root.CreateElement("cac:InvoiceLine")
	writeCbc(el, "cbc:ID", strconv.Itoa(n))

	qty := el.CreateElement("cbc:InvoicedQuantity")
	qty.CreateAttr("unitCode", sunat.UnitNIU)
	qty.SetText(line.Quantity.Round(2).String())

	writeAmount(el, "cbc:LineExtensionAmount", line.Subtotal)

	pricing := el.CreateElement("cac:PricingReference")
	alt := pricing.CreateElement("cac:AlternativeConditionPrice")
	writeAmount(alt, "cbc:PriceAmount", line.UnitPrice)
	writeCbc(alt, "cbc:PriceTypeCode", sunat.PriceTypeUnitario)

	taxTotal := el.CreateElement("cac:TaxTotal")
	writeAmount(taxTotal, "cbc:TaxAmount", line.IGV)
	sub := taxTotal.CreateElement("cac:TaxSubtotal")
	writeAmount(sub, "cbc:TaxableAmount", line.Subtotal)
	writeAmount(sub, "cbc:TaxAmount", line.IGV)

	category := sub.CreateElement("cac:TaxCategory")
	writeCbc(category, "cbc:Percent", effectivePercent(line).StringFixed(2))
	writeCbc(category, "cbc:TaxExemptionReasonCode", sunat.TaxExemptionGravado)
	writeTaxScheme(category)

	item := el.CreateElement("cac:Item")
	writeCbc(item, "cbc:Description", line.Description)

	price := el.CreateElement("cac:Price")
	writeAmount(price, "cbc:PriceAmount", line.UnitPrice)
}

func writeTaxScheme(category *etree.Element) {
	scheme := category.CreateElement("cac:TaxScheme")
	writeCbc(scheme, "cbc:ID", sunat.TaxSchemeIGVID)
	writeCbc(scheme, "cbc:Name", sunat.TaxSchemeIGVName)
	writeCbc(scheme, "cbc:TaxTypeCode", sunat.TaxSchemeIGVCode)
}

func writeCbc(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func writeAmount(parent *etree.Element, tag string, amount decimal.Decimal) {
	el := parent.CreateElement(tag)
	el.CreateAttr("currencyID", sunat.CurrencyPEN)
	el.SetText(formatAmount(amount))
}

// formatAmount redondea a 2 decimales (half-up) y serializa con 2 decimales.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// effectivePercent deriva la tasa mostrada por línea del impuesto realmente
// calculado (igv/subtotal); si no hay con qué derivarla usa la tasa del
// llamador y, en último término, 18%.
func effectivePercent(line cpe.Line) decimal.Decimal {
	if line.Subtotal.IsPositive() && line.IGV.IsPositive() {
		return line.IGV.Div(line.Subtotal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if line.TaxRate.IsPositive() {
		return line.TaxRate.Mul(decimal.NewFromInt(100)).Round(2)
	}
	return defaultIGVPercent
}

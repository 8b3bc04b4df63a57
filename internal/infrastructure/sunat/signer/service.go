package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// Service aplica la firma digital enveloped sobre el documento UBL e
// inyecta el nodo ds:Signature en el primer ext:ExtensionContent vacío.
type Service struct {
	canonicalizer dsig.Canonicalizer
}

// NewService crea el servicio de firma con canonicalización exclusiva.
func NewService() *Service {
	return &Service{
		canonicalizer: dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(""),
	}
}

// Sign firma el XML con referencia al documento completo (URI ""), digest
// SHA-256 y firma RSA PKCS#1 v1.5, e inyecta el ds:Signature resultante en
// el placeholder. La ausencia del placeholder es fatal y aborta el pipeline.
func (s *Service) Sign(xmlBytes []byte, cred *cpe.SigningCredential) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, cpe.NewSigningError("XML vacío").WithStage(cpe.StageSigning)
	}
	if cred == nil {
		return nil, cpe.NewCredentialError("credencial de firma ausente").WithStage(cpe.StageSigning)
	}

	priv, err := parsePrivateKey(cred.PrivateKeyPEM)
	if err != nil {
		return nil, cpe.NewSigningError(err.Error()).WithStage(cpe.StageSigning)
	}
	cert, err := parseCertificate(cred.CertificatePEM)
	if err != nil {
		return nil, cpe.NewSigningError(err.Error()).WithStage(cpe.StageSigning)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, cpe.NewSigningError("no se pudo parsear el XML a firmar").WithStage(cpe.StageSigning)
	}
	root := doc.Root()
	if root == nil {
		return nil, cpe.NewSigningError("documento sin raíz").WithStage(cpe.StageSigning)
	}

	// El placeholder debe existir antes de firmar
	placeholder := findSignaturePlaceholder(root)
	if placeholder == nil {
		return nil, cpe.NewSigningError("no se encontró ext:ExtensionContent vacío para inyectar la firma").WithStage(cpe.StageSigning)
	}

	// 1) Digest del documento. El documento aún no contiene firma, así que
	// canonicalizarlo completo equivale al resultado del transform enveloped.
	canonicalDoc, err := s.canonicalizer.Canonicalize(root)
	if err != nil {
		return nil, cpe.NewSigningError("canonicalizar documento: " + err.Error()).WithStage(cpe.StageSigning)
	}
	docDigest := sha256.Sum256(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado
	signedInfoXML := s.buildSignedInfo(docDigestB64)
	canonicalSignedInfo, err := s.canonicalizeFragment(signedInfoXML)
	if err != nil {
		return nil, cpe.NewSigningError("canonicalizar SignedInfo: " + err.Error()).WithStage(cpe.StageSigning)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, cpe.NewSigningError("firmar SignedInfo: " + err.Error()).WithStage(cpe.StageSigning)
	}

	// 3) ds:Signature completo con el Id que exige el esquema
	certB64 := base64.StdEncoding.EncodeToString(cert.Raw)
	signatureXML := s.buildFullSignature(signedInfoXML, base64.StdEncoding.EncodeToString(signatureValue), certB64)

	// 4) Inyectar en el placeholder
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, cpe.NewSigningError("parsear Signature: " + err.Error()).WithStage(cpe.StageSigning)
	}
	placeholder.AddChild(sigDoc.Root())

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, cpe.NewSigningError("serializar documento firmado: " + err.Error()).WithStage(cpe.StageSigning)
	}
	return EnsureSignatureID(out.Bytes()), nil
}

func (s *Service) buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgExcC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgExcC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func (s *Service) buildFullSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func (s *Service) canonicalizeFragment(fragment string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(fragment); err != nil {
		return nil, err
	}
	return s.canonicalizer.Canonicalize(doc.Root())
}

// findSignaturePlaceholder busca el primer ext:ExtensionContent vacío bajo
// ext:UBLExtensions, comparando nombres locales para tolerar prefijos.
func findSignaturePlaceholder(root *etree.Element) *etree.Element {
	exts := findChildLocal(root, "UBLExtensions")
	if exts == nil {
		return nil
	}
	for _, ext := range exts.ChildElements() {
		if localName(ext.Tag) != "UBLExtension" {
			continue
		}
		for _, content := range ext.ChildElements() {
			if localName(content.Tag) == "ExtensionContent" && len(content.ChildElements()) == 0 {
				return content
			}
		}
	}
	return nil
}

func findChildLocal(parent *etree.Element, local string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if localName(child.Tag) == local {
			return child
		}
	}
	return nil
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// EnsureSignatureID garantiza que el primer ds:Signature lleve el atributo
// Id conocido. Parche textual de último recurso, idempotente: si el nodo ya
// tiene Id no toca nada.
func EnsureSignatureID(xmlBytes []byte) []byte {
	open := []byte("<ds:Signature")
	idx := bytes.Index(xmlBytes, open)
	if idx < 0 {
		return xmlBytes
	}
	end := bytes.IndexByte(xmlBytes[idx:], '>')
	if end < 0 {
		return xmlBytes
	}
	if bytes.Contains(xmlBytes[idx:idx+end], []byte(" Id=")) {
		return xmlBytes
	}
	patched := []byte(`<ds:Signature Id="` + SignatureID + `"`)
	return bytes.Replace(xmlBytes, open, patched, 1)
}

func parsePrivateKey(keyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("llave privada PEM inválida")
	}
	// pkcs12.ToPEM serializa llaves RSA como PKCS#1 bajo el tipo genérico
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsear llave privada: %w", err)
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave privada debe ser RSA")
	}
	return key, nil
}

func parseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("certificado PEM inválido")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsear certificado: %w", err)
	}
	return cert, nil
}

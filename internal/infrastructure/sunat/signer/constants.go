// Package signer extrae credenciales de contenedores PKCS#12 y aplica la
// firma digital enveloped (XMLDSig) que exige el esquema de SUNAT.
package signer

// Algoritmos y namespaces de XMLDSig.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	AlgExcC14N         = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// SignatureID identificador que el bloque cac:Signature del documento
// referencia; la firma debe emitirse con este Id para que la validación de
// SUNAT la ubique.
const SignatureID = "SignatureSP"
